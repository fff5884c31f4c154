package auracle

import (
	"testing"

	"github.com/jkl1337/auracle/pkg/aur"
)

func depList(names ...string) []aur.Dependency {
	deps := make([]aur.Dependency, 0, len(names))
	for _, n := range names {
		deps = append(deps, aur.ParseDependency(n))
	}
	return deps
}

func TestPackageCacheAddPackage(t *testing.T) {
	cache := NewPackageCache()

	pkg, added := cache.AddPackage(aur.Package{Name: "cower", PackageBase: "cower"})
	if !added || pkg.Name != "cower" {
		t.Fatalf("first insert: added = %v, pkg = %+v", added, pkg)
	}

	dup, added := cache.AddPackage(aur.Package{Name: "cower", PackageBase: "cower", Version: "9"})
	if added {
		t.Error("duplicate name inserted")
	}
	if dup != pkg {
		t.Error("duplicate insert did not return the cached package")
	}
	if cache.Size() != 1 {
		t.Errorf("size = %d, want 1", cache.Size())
	}
}

func TestPackageCacheLookup(t *testing.T) {
	cache := NewPackageCache()
	cache.AddPackage(aur.Package{Name: "auracle-git", PackageBase: "auracle"})

	if cache.LookupByPkgname("auracle-git") == nil {
		t.Error("lookup by pkgname failed")
	}
	if cache.LookupByPkgbase("auracle") == nil {
		t.Error("lookup by pkgbase failed")
	}
	if cache.LookupByPkgname("auracle") != nil {
		t.Error("pkgbase name resolved as pkgname")
	}
}

func TestWalkDependenciesOrder(t *testing.T) {
	cache := NewPackageCache()
	cache.AddPackage(aur.Package{Name: "a", PackageBase: "a", Depends: depList("b", "glibc")})
	cache.AddPackage(aur.Package{Name: "b", PackageBase: "b", MakeDepends: depList("c")})
	cache.AddPackage(aur.Package{Name: "c", PackageBase: "c"})

	var order []string
	cache.WalkDependencies("a", func(name string, pkg *aur.Package) {
		order = append(order, name)
	})

	want := []string{"c", "b", "glibc", "a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestWalkDependenciesCycle(t *testing.T) {
	cache := NewPackageCache()
	cache.AddPackage(aur.Package{Name: "a", PackageBase: "a", Depends: depList("b")})
	cache.AddPackage(aur.Package{Name: "b", PackageBase: "b", Depends: depList("a")})

	count := 0
	cache.WalkDependencies("a", func(string, *aur.Package) { count++ })
	if count != 2 {
		t.Errorf("cycle walk visited %d names, want 2", count)
	}
}
