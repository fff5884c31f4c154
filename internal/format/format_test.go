package format

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jkl1337/auracle/internal/pacman"
	"github.com/jkl1337/auracle/pkg/aur"
	"github.com/jkl1337/auracle/pkg/errors"
)

func testPackage() *aur.Package {
	return &aur.Package{
		Name:           "auracle-git",
		PackageBase:    "auracle-git",
		Version:        "r74.82e863f-1",
		Description:    "A flexible client for the AUR",
		URL:            "https://github.com/falconindy/auracle.git",
		Maintainer:     "falconindy",
		Votes:          33,
		Popularity:     0.27,
		FirstSubmitted: time.Unix(1499013608, 0).UTC(),
		LastModified:   time.Unix(1534000474, 0).UTC(),
		Depends:        []aur.Dependency{aur.ParseDependency("pacman"), aur.ParseDependency("libcurl.so")},
		Licenses:       []string{"MIT"},
	}
}

func TestMain(m *testing.M) {
	EnableColor(false)
	m.Run()
}

func TestNameOnly(t *testing.T) {
	var buf bytes.Buffer
	NameOnly(&buf, testPackage())
	if buf.String() != "auracle-git\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestUpdate(t *testing.T) {
	var buf bytes.Buffer
	local := &pacman.LocalPackage{Pkgname: "auracle-git", Pkgver: "r70.000000-1"}
	Update(&buf, local, testPackage())
	if buf.String() != "auracle-git r70.000000-1 -> r74.82e863f-1\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestShort(t *testing.T) {
	var buf bytes.Buffer
	Short(&buf, testPackage(), nil)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("output = %q", buf.String())
	}
	if lines[0] != "aur/auracle-git r74.82e863f-1 (33, 0.27)" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "    A flexible client for the AUR" {
		t.Errorf("description = %q", lines[1])
	}
}

func TestShortAnnotations(t *testing.T) {
	pkg := testPackage()
	pkg.Maintainer = ""
	pkg.OutOfDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	local := &pacman.LocalPackage{Pkgname: pkg.Name, Pkgver: "r70.000000-1"}

	var buf bytes.Buffer
	Short(&buf, pkg, local)

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	for _, want := range []string{"(Out-of-date: 2024-03-01)", "(Orphaned)", "[installed: r70.000000-1]"} {
		if !strings.Contains(header, want) {
			t.Errorf("header %q missing %q", header, want)
		}
	}
}

func TestLong(t *testing.T) {
	var buf bytes.Buffer
	Long(&buf, testPackage(), nil)
	out := buf.String()

	for _, want := range []string{
		"Name", "auracle-git",
		"Depends On", "pacman  libcurl.so",
		"AUR Page", "https://aur.archlinux.org/packages/auracle-git",
		"Votes", "33",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("long output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Out Of Date") {
		t.Error("Out Of Date shown for a package that is not flagged")
	}
}

func TestCustom(t *testing.T) {
	var buf bytes.Buffer
	if err := Custom(&buf, "{name} {version} [{licenses}]", testPackage()); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "auracle-git r74.82e863f-1 [MIT]\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCustomErrors(t *testing.T) {
	var buf bytes.Buffer

	err := Custom(&buf, "{nonsense}", testPackage())
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("unknown field: err = %v", err)
	}

	err = Custom(&buf, "{name", testPackage())
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("unterminated reference: err = %v", err)
	}
}
