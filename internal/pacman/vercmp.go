package pacman

import "strings"

// Vercmp compares two package versions using pacman's ordering rules,
// including epoch and pkgrel handling. It returns a negative value when
// a < b, zero when equal, and a positive value when a > b.
func Vercmp(a, b string) int {
	if a == b {
		return 0
	}

	epochA, verA, relA := parseEVR(a)
	epochB, verB, relB := parseEVR(b)

	if r := rpmvercmp(epochA, epochB); r != 0 {
		return r
	}
	if r := rpmvercmp(verA, verB); r != 0 {
		return r
	}
	// pkgrel is only significant when both versions carry one.
	if relA != "" && relB != "" {
		return rpmvercmp(relA, relB)
	}
	return 0
}

// parseEVR splits a full version string into epoch, version and release.
func parseEVR(evr string) (epoch, version, release string) {
	epoch = "0"
	rest := evr

	if i := strings.IndexByte(rest, ':'); i >= 0 && isDigits(rest[:i]) {
		if i > 0 {
			epoch = rest[:i]
		}
		rest = rest[i+1:]
	}
	if i := strings.LastIndexByte(rest, '-'); i >= 0 {
		version, release = rest[:i], rest[i+1:]
	} else {
		version = rest
	}
	return epoch, version, release
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool { return isDigit(c) || isAlpha(c) }

// rpmvercmp compares two version fragments segment by segment, where a
// segment is a maximal run of digits or of letters. Numeric segments
// compare numerically and beat alphabetic ones; separator runs of unequal
// length decide otherwise-equal versions.
func rpmvercmp(a, b string) int {
	if a == b {
		return 0
	}

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		segStartA, segStartB := i, j
		for i < len(a) && !isAlnum(a[i]) {
			i++
		}
		for j < len(b) && !isAlnum(b[j]) {
			j++
		}
		if i >= len(a) || j >= len(b) {
			break
		}

		// Unequal separator runs decide the comparison.
		if i-segStartA != j-segStartB {
			if i-segStartA < j-segStartB {
				return -1
			}
			return 1
		}

		isnum := isDigit(a[i])
		endA, endB := i, j
		if isnum {
			for endA < len(a) && isDigit(a[endA]) {
				endA++
			}
			for endB < len(b) && isDigit(b[endB]) {
				endB++
			}
		} else {
			for endA < len(a) && isAlpha(a[endA]) {
				endA++
			}
			for endB < len(b) && isAlpha(b[endB]) {
				endB++
			}
		}

		segA, segB := a[i:endA], b[j:endB]

		// Mixed segment types: numeric segments are always newer.
		if len(segB) == 0 {
			if isnum {
				return 1
			}
			return -1
		}

		if isnum {
			segA = strings.TrimLeft(segA, "0")
			segB = strings.TrimLeft(segB, "0")
			if len(segA) != len(segB) {
				if len(segA) > len(segB) {
					return 1
				}
				return -1
			}
		}
		if r := strings.Compare(segA, segB); r != 0 {
			return r
		}

		i, j = endA, endB
	}

	restA, restB := a[i:], b[j:]
	if restA == "" && restB == "" {
		return 0
	}
	// A trailing alphabetic segment never beats an empty string.
	if (restA == "" && (restB == "" || !isAlpha(restB[0]))) ||
		(restA != "" && isAlpha(restA[0])) {
		return -1
	}
	return 1
}
