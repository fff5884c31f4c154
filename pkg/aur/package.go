package aur

import (
	"encoding/json"
	"strings"
	"time"
)

// Package is a single package record returned by the AUR RPC interface.
//
// Zero values: string fields are empty, slices are nil, timestamps are the
// zero time. OutOfDate is the zero time for packages that are not flagged.
// A Package is safe for concurrent reads after construction.
type Package struct {
	ID             int
	Name           string
	PackageBaseID  int
	PackageBase    string
	Version        string
	Description    string
	URL            string
	URLPath        string // snapshot tarball path relative to the AUR base URL
	Maintainer     string
	Votes          int
	Popularity     float64
	OutOfDate      time.Time
	FirstSubmitted time.Time
	LastModified   time.Time
	Depends        []Dependency
	MakeDepends    []Dependency
	CheckDepends   []Dependency
	OptDepends     []Dependency
	Conflicts      []Dependency
	Provides       []Dependency
	Replaces       []Dependency
	Groups         []string
	Licenses       []string
	Keywords       []string
}

// rpcPackage mirrors the wire layout of a single result object.
type rpcPackage struct {
	ID             int      `json:"ID"`
	Name           string   `json:"Name"`
	PackageBaseID  int      `json:"PackageBaseID"`
	PackageBase    string   `json:"PackageBase"`
	Version        string   `json:"Version"`
	Description    string   `json:"Description"`
	URL            string   `json:"URL"`
	URLPath        string   `json:"URLPath"`
	Maintainer     string   `json:"Maintainer"`
	NumVotes       int      `json:"NumVotes"`
	Popularity     float64  `json:"Popularity"`
	OutOfDate      *int64   `json:"OutOfDate"`
	FirstSubmitted int64    `json:"FirstSubmitted"`
	LastModified   int64    `json:"LastModified"`
	Depends        []string `json:"Depends"`
	MakeDepends    []string `json:"MakeDepends"`
	CheckDepends   []string `json:"CheckDepends"`
	OptDepends     []string `json:"OptDepends"`
	Conflicts      []string `json:"Conflicts"`
	Provides       []string `json:"Provides"`
	Replaces       []string `json:"Replaces"`
	Groups         []string `json:"Groups"`
	Licenses       []string `json:"License"`
	Keywords       []string `json:"Keywords"`
}

// UnmarshalJSON decodes the RPC wire format, converting unix timestamps to
// time.Time and dependency strings to parsed [Dependency] values.
func (p *Package) UnmarshalJSON(data []byte) error {
	var raw rpcPackage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Package{
		ID:             raw.ID,
		Name:           raw.Name,
		PackageBaseID:  raw.PackageBaseID,
		PackageBase:    raw.PackageBase,
		Version:        raw.Version,
		Description:    raw.Description,
		URL:            raw.URL,
		URLPath:        raw.URLPath,
		Maintainer:     raw.Maintainer,
		Votes:          raw.NumVotes,
		Popularity:     raw.Popularity,
		FirstSubmitted: time.Unix(raw.FirstSubmitted, 0).UTC(),
		LastModified:   time.Unix(raw.LastModified, 0).UTC(),
		Depends:        parseDependencyList(raw.Depends),
		MakeDepends:    parseDependencyList(raw.MakeDepends),
		CheckDepends:   parseDependencyList(raw.CheckDepends),
		OptDepends:     parseDependencyList(raw.OptDepends),
		Conflicts:      parseDependencyList(raw.Conflicts),
		Provides:       parseDependencyList(raw.Provides),
		Replaces:       parseDependencyList(raw.Replaces),
		Groups:         raw.Groups,
		Licenses:       raw.Licenses,
		Keywords:       raw.Keywords,
	}
	if raw.OutOfDate != nil {
		p.OutOfDate = time.Unix(*raw.OutOfDate, 0).UTC()
	}
	return nil
}

// DependencyMod is the version constraint operator of a dependency spec.
type DependencyMod int

const (
	// DependencyModAny matches any version.
	DependencyModAny DependencyMod = iota
	// DependencyModEqual requires an exact version match.
	DependencyModEqual
	// DependencyModGE requires a version greater than or equal.
	DependencyModGE
	// DependencyModLE requires a version less than or equal.
	DependencyModLE
	// DependencyModGT requires a strictly greater version.
	DependencyModGT
	// DependencyModLT requires a strictly lesser version.
	DependencyModLT
)

// Dependency is a parsed dependency specification such as "foo>=1.2".
type Dependency struct {
	Depstring string // the original unparsed spec
	Name      string
	Version   string
	Mod       DependencyMod
}

// String returns the original dependency spec.
func (d Dependency) String() string { return d.Depstring }

// ParseDependency splits a dependency spec into name, constraint operator
// and version. Descriptions after a colon (used by optdepends) are dropped
// from the parsed name.
func ParseDependency(depstring string) Dependency {
	spec := depstring
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		spec = spec[:i]
	}

	ops := []struct {
		token string
		mod   DependencyMod
	}{
		{">=", DependencyModGE},
		{"<=", DependencyModLE},
		{"=", DependencyModEqual},
		{">", DependencyModGT},
		{"<", DependencyModLT},
	}
	for _, op := range ops {
		if i := strings.Index(spec, op.token); i >= 0 {
			return Dependency{
				Depstring: depstring,
				Name:      spec[:i],
				Version:   spec[i+len(op.token):],
				Mod:       op.mod,
			}
		}
	}
	return Dependency{Depstring: depstring, Name: spec, Mod: DependencyModAny}
}

func parseDependencyList(specs []string) []Dependency {
	if len(specs) == 0 {
		return nil
	}
	deps := make([]Dependency, 0, len(specs))
	for _, s := range specs {
		deps = append(deps, ParseDependency(s))
	}
	return deps
}
