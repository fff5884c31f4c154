package auracle

import (
	"testing"
	"time"

	"github.com/jkl1337/auracle/pkg/aur"
)

func TestMakePackageSorter(t *testing.T) {
	older := time.Unix(1000, 0)
	newer := time.Unix(2000, 0)

	a := &aur.Package{Name: "alpha", Votes: 10, Popularity: 0.5, LastModified: newer}
	b := &aur.Package{Name: "beta", Votes: 20, Popularity: 0.1, LastModified: older}

	tests := []struct {
		field string
		order OrderBy
		want  int // sign of cmp(a, b)
	}{
		{"name", OrderAsc, -1},
		{"name", OrderDesc, 1},
		{"votes", OrderAsc, -1},
		{"popularity", OrderAsc, 1},
		{"lastmodified", OrderAsc, 1},
		{"lastmodified", OrderDesc, -1},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			cmp, err := MakePackageSorter(tt.field, tt.order)
			if err != nil {
				t.Fatal(err)
			}
			got := cmp(a, b)
			if (got < 0) != (tt.want < 0) || (got > 0) != (tt.want > 0) {
				t.Errorf("cmp = %d, want sign %d", got, tt.want)
			}
		})
	}
}

func TestMakePackageSorterInvalidField(t *testing.T) {
	if _, err := MakePackageSorter("description", OrderAsc); err == nil {
		t.Error("invalid sort field accepted")
	}
}

func TestSortUnique(t *testing.T) {
	sorter, _ := MakePackageSorter("name", OrderAsc)
	packages := []aur.Package{
		{Name: "b"}, {Name: "a"}, {Name: "b"}, {Name: "c"},
	}

	out := sortUnique(packages, sorter)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	for i, want := range []string{"a", "b", "c"} {
		if out[i].Name != want {
			t.Errorf("out[%d] = %q, want %q", i, out[i].Name, want)
		}
	}
}
