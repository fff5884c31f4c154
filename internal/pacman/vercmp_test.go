package pacman

import "testing"

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestVercmp(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		// equality
		{"1.0", "1.0", 0},
		{"1.0.0", "1.0.0", 0},
		{"1:1.0", "1:1.0", 0},

		// plain numeric ordering
		{"1.0", "2.0", -1},
		{"2.0.1", "2.0", 1},
		{"1.10", "1.9", 1},
		{"1.0010", "1.9", 1},

		// alphabetic suffixes sort before the bare version
		{"1.5b", "1.5", -1},
		{"1.0a", "1.0alpha", -1},
		{"1.0alpha", "1.0b", -1},
		{"1.0b", "1.0beta", -1},
		{"1.0beta", "1.0rc", -1},
		{"1.0rc", "1.0", -1},

		// but dotted alpha segments sort after
		{"1.5.a", "1.5", 1},
		{"1.5.b", "1.5.a", 1},
		{"2.0a", "2.0.a", -1},

		// numeric beats alphabetic
		{"1.5.1", "1.5.b", 1},

		// separator handling
		{"1.0.", "1.0", 1},
		{"1..0", "1.0", 1},
		{"1.0", "1+0", 0},

		// epoch dominates
		{"1:1.0", "2.0", 1},
		{"1:1.0", "1.1", 1},
		{"0:1.0", "1.0", 0},
		{"2:1.0", "1:2.0", 1},

		// pkgrel significant only when both carry one
		{"1.0-1", "1.0-2", -1},
		{"1.0-1", "1.0", 0},
		{"1.0", "1.0-2", 0},
		{"1.5.0-1", "1.5.0-2", -1},

		// leading zeroes
		{"1.05", "1.5", 0},
		{"1.005", "1.05", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			if got := sign(Vercmp(tt.a, tt.b)); got != tt.want {
				t.Errorf("Vercmp(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := sign(Vercmp(tt.b, tt.a)); got != -tt.want {
				t.Errorf("Vercmp(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}
