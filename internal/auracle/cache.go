package auracle

import "github.com/jkl1337/auracle/pkg/aur"

// PackageCache deduplicates packages fetched during one invocation, indexed
// by both pkgname and pkgbase. It backs the recursive dependency walk used
// by clone, update and buildorder.
type PackageCache struct {
	packages []aur.Package

	// Integer indices into packages rather than pointers, so the slice can
	// grow without invalidating the maps.
	byPkgname map[string]int
	byPkgbase map[string]int
}

// NewPackageCache creates an empty cache.
func NewPackageCache() *PackageCache {
	return &PackageCache{
		byPkgname: make(map[string]int),
		byPkgbase: make(map[string]int),
	}
}

// AddPackage inserts pkg unless a package of the same name is already
// cached. It returns the cached package and whether an insert happened.
func (c *PackageCache) AddPackage(pkg aur.Package) (*aur.Package, bool) {
	if i, ok := c.byPkgname[pkg.Name]; ok {
		return &c.packages[i], false
	}

	i := len(c.packages)
	c.packages = append(c.packages, pkg)
	c.byPkgname[pkg.Name] = i
	c.byPkgbase[pkg.PackageBase] = i
	return &c.packages[i], true
}

// LookupByPkgname returns the cached package named pkgname, or nil.
func (c *PackageCache) LookupByPkgname(pkgname string) *aur.Package {
	if i, ok := c.byPkgname[pkgname]; ok {
		return &c.packages[i]
	}
	return nil
}

// LookupByPkgbase returns a cached package belonging to pkgbase, or nil.
func (c *PackageCache) LookupByPkgbase(pkgbase string) *aur.Package {
	if i, ok := c.byPkgbase[pkgbase]; ok {
		return &c.packages[i]
	}
	return nil
}

// Size returns the number of cached packages.
func (c *PackageCache) Size() int { return len(c.packages) }

// Empty reports whether the cache holds no packages.
func (c *PackageCache) Empty() bool { return len(c.packages) == 0 }

// WalkDependenciesFn receives each dependency name in build order; pkg is
// nil when the dependency is not in the cache (e.g. satisfied by a repo).
type WalkDependenciesFn func(name string, pkg *aur.Package)

// WalkDependencies visits the transitive dependencies of name depth-first,
// emitting dependencies before their dependents. Each name is visited once.
func (c *PackageCache) WalkDependencies(name string, fn WalkDependenciesFn) {
	visited := make(map[string]struct{})

	var walk func(name string)
	walk = func(name string) {
		if _, ok := visited[name]; ok {
			return
		}
		visited[name] = struct{}{}

		pkg := c.LookupByPkgname(name)
		if pkg != nil {
			for _, deplist := range [][]aur.Dependency{pkg.Depends, pkg.MakeDepends, pkg.CheckDepends} {
				for _, dep := range deplist {
					walk(dep.Name)
				}
			}
		}
		fn(name, pkg)
	}
	walk(name)
}
