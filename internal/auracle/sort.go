package auracle

import (
	"slices"
	"strings"

	"github.com/jkl1337/auracle/pkg/aur"
	"github.com/jkl1337/auracle/pkg/errors"
)

// OrderBy selects ascending or descending sort order.
type OrderBy int

const (
	// OrderAsc sorts smallest first.
	OrderAsc OrderBy = iota
	// OrderDesc sorts largest first.
	OrderDesc
)

// Sorter compares two packages for ordering.
type Sorter func(a, b *aur.Package) int

// MakePackageSorter builds a comparison function over the named package
// field. Supported fields: name, popularity, votes, firstsubmitted,
// lastmodified.
func MakePackageSorter(field string, order OrderBy) (Sorter, error) {
	var cmp Sorter
	switch field {
	case "name":
		cmp = func(a, b *aur.Package) int { return strings.Compare(a.Name, b.Name) }
	case "popularity":
		cmp = func(a, b *aur.Package) int {
			switch {
			case a.Popularity < b.Popularity:
				return -1
			case a.Popularity > b.Popularity:
				return 1
			}
			return 0
		}
	case "votes":
		cmp = func(a, b *aur.Package) int { return a.Votes - b.Votes }
	case "firstsubmitted":
		cmp = func(a, b *aur.Package) int { return a.FirstSubmitted.Compare(b.FirstSubmitted) }
	case "lastmodified":
		cmp = func(a, b *aur.Package) int { return a.LastModified.Compare(b.LastModified) }
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid sort field %q", field)
	}

	if order == OrderDesc {
		inner := cmp
		cmp = func(a, b *aur.Package) int { return -inner(a, b) }
	}
	return cmp, nil
}

// sortUnique orders packages with sorter and drops exact name duplicates,
// which can occur when a large query is split into multiple wire requests.
func sortUnique(packages []aur.Package, sorter Sorter) []aur.Package {
	slices.SortFunc(packages, func(a, b aur.Package) int { return sorter(&a, &b) })
	return slices.CompactFunc(packages, func(a, b aur.Package) bool { return a.Name == b.Name })
}
