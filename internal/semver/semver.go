// Package semver parses and compares version strings per Semantic Versioning 2.0.0.
//
// Each field of a parsed Version is a substring of the original input, sliced
// rather than copied. Compare does not allocate.
package semver

import "strings"

// Version is a parsed semantic version. Major, Minor, and Patch hold the
// decimal digit substrings verbatim (no leading zeros except a bare "0").
// Prerelease and Build are empty when the input carried no such component.
type Version struct {
	raw        string
	Major      string
	Minor      string
	Patch      string
	Prerelease string
	Build      string
}

// TryParse parses s as a SemVer 2.0.0 version string. It fails if any
// component is missing, malformed, or if trailing input remains.
func TryParse(s string) (Version, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return Version{}, false
		}
	}

	rest := s
	build := ""
	if idx := strings.IndexByte(rest, '+'); idx >= 0 {
		build = rest[idx+1:]
		rest = rest[:idx]
		if !validBuild(build) {
			return Version{}, false
		}
	}

	core := rest
	prerelease := ""
	if idx := strings.IndexByte(rest, '-'); idx >= 0 {
		prerelease = rest[idx+1:]
		core = rest[:idx]
		if !validPrerelease(prerelease) {
			return Version{}, false
		}
	}

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version{}, false
	}
	for _, p := range parts {
		if !validNumber(p) {
			return Version{}, false
		}
	}

	return Version{
		raw:        s,
		Major:      parts[0],
		Minor:      parts[1],
		Patch:      parts[2],
		Prerelease: prerelease,
		Build:      build,
	}, true
}

// String returns the canonical form, reassembled from the parsed ranges.
func (v Version) String() string {
	var b strings.Builder
	b.Grow(len(v.raw))
	b.WriteString(v.Major)
	b.WriteByte('.')
	b.WriteString(v.Minor)
	b.WriteByte('.')
	b.WriteString(v.Patch)
	if v.Prerelease != "" {
		b.WriteByte('-')
		b.WriteString(v.Prerelease)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

func validNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s == "0" || s[0] != '0'
}

func isIdentByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '-'
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validPrerelease checks a dot-separated LABEL per semver.org: each
// identifier is non-empty, drawn from [0-9A-Za-z-], and a purely numeric
// identifier must not have a leading zero.
func validPrerelease(label string) bool {
	for _, id := range strings.Split(label, ".") {
		if id == "" {
			return false
		}
		for i := 0; i < len(id); i++ {
			if !isIdentByte(id[i]) {
				return false
			}
		}
		if isAllDigits(id) && len(id) > 1 && id[0] == '0' {
			return false
		}
	}
	return true
}

// validBuild checks a dot-separated BUILD identifier list. Unlike
// prerelease identifiers, numeric build identifiers may carry leading
// zeros: build metadata is opaque and never compared.
func validBuild(build string) bool {
	for _, id := range strings.Split(build, ".") {
		if id == "" {
			return false
		}
		for i := 0; i < len(id); i++ {
			if !isIdentByte(id[i]) {
				return false
			}
		}
	}
	return true
}

// compareNumericString compares two non-negative integers given as digit
// strings with no leading zeros: the longer string is numerically larger,
// and equal-length strings compare lexicographically.
func compareNumericString(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func compareIdentifier(a, b string) int {
	aNum, bNum := isAllDigits(a), isAllDigits(b)
	switch {
	case aNum && bNum:
		return compareNumericString(a, b)
	case aNum && !bNum:
		return -1
	case !aNum && bNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func comparePrerelease(a, b string) int {
	for {
		idA, restA, moreA := strings.Cut(a, ".")
		idB, restB, moreB := strings.Cut(b, ".")
		if r := compareIdentifier(idA, idB); r != 0 {
			return r
		}
		switch {
		case !moreA && moreB:
			return -1
		case moreA && !moreB:
			return 1
		case !moreA && !moreB:
			return 0
		}
		a, b = restA, restB
	}
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than
// b, per semver.org §11. Build metadata is ignored.
func Compare(a, b Version) int {
	if r := compareNumericString(a.Major, b.Major); r != 0 {
		return r
	}
	if r := compareNumericString(a.Minor, b.Minor); r != 0 {
		return r
	}
	if r := compareNumericString(a.Patch, b.Patch); r != 0 {
		return r
	}

	aHas, bHas := a.Prerelease != "", b.Prerelease != ""
	switch {
	case aHas && !bHas:
		return -1
	case !aHas && bHas:
		return 1
	case !aHas && !bHas:
		return 0
	default:
		return comparePrerelease(a.Prerelease, b.Prerelease)
	}
}

// CompareStrings parses both inputs and compares them. A version that fails
// to parse is treated as lower precedence than any version that parses; two
// unparseable inputs compare equal.
func CompareStrings(a, b string) int {
	va, oka := TryParse(a)
	vb, okb := TryParse(b)
	switch {
	case oka && okb:
		return Compare(va, vb)
	case oka && !okb:
		return 1
	case !oka && okb:
		return -1
	default:
		return 0
	}
}
