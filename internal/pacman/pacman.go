// Package pacman reads the local pacman package database and configuration.
//
// Three sources back the queries auracle needs: pacman.conf (DBPath, repo
// list, IgnorePkg), the local database directory of desc records, and the
// gzip-compressed sync database archives of the configured repos. Sync
// archives are loaded lazily, once per repo.
package pacman

import (
	"archive/tar"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/jkl1337/auracle/pkg/aur"
)

// DefaultConf is the pacman configuration read when none is specified.
const DefaultConf = "/etc/pacman.conf"

const defaultDBPath = "/var/lib/pacman"

// LocalPackage is one installed package from the local database.
type LocalPackage struct {
	Pkgname  string
	Pkgver   string
	Provides []string
	Depends  []string
}

// Pacman queries the local package database and the configured sync repos.
type Pacman struct {
	dbPath  string
	repos   []string
	ignored map[string]struct{}

	local     map[string]*LocalPackage
	localList []LocalPackage
	sync      map[string]map[string]struct{}
}

// NewFromConfig builds a Pacman from the given pacman.conf, following
// Include directives. An empty path selects [DefaultConf].
func NewFromConfig(confPath string) (*Pacman, error) {
	if confPath == "" {
		confPath = DefaultConf
	}

	p := &Pacman{
		dbPath:  defaultDBPath,
		ignored: make(map[string]struct{}),
		sync:    make(map[string]map[string]struct{}),
	}
	if err := p.parseConf(confPath); err != nil {
		return nil, err
	}
	if err := p.loadLocal(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pacman) parseConf(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read pacman config %s: %w", path, err)
	}
	defer f.Close()

	section := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			if section != "options" {
				p.repos = append(p.repos, section)
			}
			continue
		}

		key, value, _ := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Include":
			matches, err := filepath.Glob(value)
			if err != nil {
				continue
			}
			for _, m := range matches {
				if err := p.parseConf(m); err != nil {
					return err
				}
			}
		case "DBPath":
			if section == "options" && value != "" {
				p.dbPath = value
			}
		case "IgnorePkg":
			if section == "options" {
				for _, name := range strings.Fields(value) {
					p.ignored[name] = struct{}{}
				}
			}
		}
	}
	return scanner.Err()
}

// loadLocal reads every desc record under <dbpath>/local.
func (p *Pacman) loadLocal() error {
	p.local = make(map[string]*LocalPackage)

	dir := filepath.Join(p.dbPath, "local")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read local database %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pkg, err := parseDesc(filepath.Join(dir, entry.Name(), "desc"))
		if err != nil {
			continue
		}
		p.localList = append(p.localList, *pkg)
	}
	for i := range p.localList {
		p.local[p.localList[i].Pkgname] = &p.localList[i]
	}
	return nil
}

// parseDesc reads the %FIELD% record format used by pacman databases.
func parseDesc(path string) (*LocalPackage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pkg := &LocalPackage{}
	field := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "%") && strings.HasSuffix(line, "%") {
			field = line[1 : len(line)-1]
			continue
		}
		if line == "" {
			field = ""
			continue
		}
		switch field {
		case "NAME":
			pkg.Pkgname = line
		case "VERSION":
			pkg.Pkgver = line
		case "PROVIDES":
			pkg.Provides = append(pkg.Provides, line)
		case "DEPENDS":
			pkg.Depends = append(pkg.Depends, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if pkg.Pkgname == "" {
		return nil, fmt.Errorf("desc record %s has no name", path)
	}
	return pkg, nil
}

// LocalPackages returns every installed package, in database order.
func (p *Pacman) LocalPackages() []LocalPackage { return p.localList }

// GetLocalPackage returns the installed package named name, or nil.
func (p *Pacman) GetLocalPackage(name string) *LocalPackage {
	return p.local[name]
}

// ShouldIgnorePackage reports whether name is listed in IgnorePkg.
func (p *Pacman) ShouldIgnorePackage(name string) bool {
	_, ok := p.ignored[name]
	return ok
}

// HasPackage reports whether any configured sync repo carries name.
func (p *Pacman) HasPackage(name string) bool {
	for _, repo := range p.repos {
		names, err := p.syncNames(repo)
		if err != nil {
			continue
		}
		if _, ok := names[name]; ok {
			return true
		}
	}
	return false
}

// syncNames enumerates the package names in a repo's sync database, a
// gzip-compressed tar whose entries are <name>-<pkgver>-<pkgrel>/ dirs.
func (p *Pacman) syncNames(repo string) (map[string]struct{}, error) {
	if names, ok := p.sync[repo]; ok {
		return names, nil
	}

	f, err := os.Open(filepath.Join(p.dbPath, "sync", repo+".db"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	names := make(map[string]struct{})
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		dir, _, _ := strings.Cut(hdr.Name, "/")
		if name, ok := splitPkgDir(dir); ok {
			names[name] = struct{}{}
		}
	}

	p.sync[repo] = names
	return names, nil
}

// splitPkgDir strips the trailing -<pkgver>-<pkgrel> from a database entry
// directory name.
func splitPkgDir(dir string) (string, bool) {
	i := strings.LastIndexByte(dir, '-')
	if i <= 0 {
		return "", false
	}
	j := strings.LastIndexByte(dir[:i], '-')
	if j <= 0 {
		return "", false
	}
	return dir[:j], true
}

// DependencyIsSatisfied reports whether an installed package or one of its
// provides satisfies the dependency spec, honoring version constraints.
func (p *Pacman) DependencyIsSatisfied(depstring string) bool {
	dep := aur.ParseDependency(depstring)

	if local := p.local[dep.Name]; local != nil && depMatches(dep, local.Pkgver) {
		return true
	}
	for i := range p.localList {
		for _, provide := range p.localList[i].Provides {
			name, version, _ := strings.Cut(provide, "=")
			if name != dep.Name {
				continue
			}
			// An unversioned provide satisfies only unversioned deps.
			if dep.Mod == aur.DependencyModAny || (version != "" && depMatches(dep, version)) {
				return true
			}
		}
	}
	return false
}

func depMatches(dep aur.Dependency, version string) bool {
	switch dep.Mod {
	case aur.DependencyModAny:
		return true
	case aur.DependencyModEqual:
		return Vercmp(version, dep.Version) == 0
	case aur.DependencyModGE:
		return Vercmp(version, dep.Version) >= 0
	case aur.DependencyModLE:
		return Vercmp(version, dep.Version) <= 0
	case aur.DependencyModGT:
		return Vercmp(version, dep.Version) > 0
	case aur.DependencyModLT:
		return Vercmp(version, dep.Version) < 0
	}
	return false
}
