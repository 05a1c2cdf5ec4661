package semver

import "testing"

func TestTryParseRoundTrip(t *testing.T) {
	valid := []string{
		"0.0.0",
		"1.2.3",
		"10.20.30",
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-0.3.7",
		"1.0.0-x.7.z.92",
		"1.0.0-alpha+001",
		"1.0.0+20130313144700",
		"1.0.0-beta+exp.sha.5114f85",
		"1.0.0+21AF26D3---117B344092BD",
	}
	for _, s := range valid {
		v, ok := TryParse(s)
		if !ok {
			t.Fatalf("TryParse(%q): expected ok", s)
		}
		if got := v.String(); got != s {
			t.Fatalf("round trip %q: got %q", s, got)
		}
	}
}

func TestTryParseInvalid(t *testing.T) {
	invalid := []string{
		"",
		"1",
		"1.2",
		"1.2.3.4",
		"01.2.3",
		"1.02.3",
		"1.2.03",
		"1.2.3-",
		"1.2.3-.",
		"1.2.3-01",
		"1.2.3-01.beta",
		"1.2.3+",
		"1.2.3+.",
		"1.2.3+build_meta", // underscore not permitted
		"-1.2.3",
		"1.2.3 ",
		" 1.2.3",
		"1.2.3\n",
		"v1.2.3",
		"1.2.3-Прив",
	}
	for _, s := range invalid {
		if _, ok := TryParse(s); ok {
			t.Fatalf("TryParse(%q): expected failure", s)
		}
	}
}

func TestCompareOrder(t *testing.T) {
	ordered := []string{
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-alpha.beta",
		"1.0.0-beta",
		"1.0.0-beta.2",
		"1.0.0-beta.11",
		"1.0.0-rc.1",
		"1.0.0",
	}
	for i := 0; i < len(ordered)-1; i++ {
		a, ok := TryParse(ordered[i])
		if !ok {
			t.Fatalf("TryParse(%q) failed", ordered[i])
		}
		b, ok := TryParse(ordered[i+1])
		if !ok {
			t.Fatalf("TryParse(%q) failed", ordered[i+1])
		}
		if r := Compare(a, b); r >= 0 {
			t.Fatalf("expected %q < %q, got Compare=%d", ordered[i], ordered[i+1], r)
		}
	}
}

func TestCompareBuildIgnored(t *testing.T) {
	a, _ := TryParse("1.0.0-a")
	b, _ := TryParse("1.0.0-a+anything")
	if r := Compare(a, b); r != 0 {
		t.Fatalf("expected build metadata to be ignored, got Compare=%d", r)
	}
}

func TestCompareReflexive(t *testing.T) {
	a, _ := TryParse("2.4.6-rc.3+build.9")
	if r := Compare(a, a); r != 0 {
		t.Fatalf("expected Compare(a,a)=0, got %d", r)
	}
}

func TestCompareStringsInvalidVsValid(t *testing.T) {
	if r := CompareStrings("not-a-version", "1.0.0"); r >= 0 {
		t.Fatalf("expected invalid < valid, got %d", r)
	}
	if r := CompareStrings("1.0.0", "not-a-version"); r <= 0 {
		t.Fatalf("expected valid > invalid, got %d", r)
	}
	if r := CompareStrings("also-not", "not-a-version"); r != 0 {
		t.Fatalf("expected two invalids to compare equal, got %d", r)
	}
}

func TestCompareNumericStringSort(t *testing.T) {
	// Mirrors the numeric-string comparator directly: longer digit
	// strings win, equal-length strings compare lexicographically.
	inputs := []string{"123456", "89", "9999", "10", "333333", "80", "0", "345"}
	want := []string{"0", "10", "80", "89", "345", "9999", "123456", "333333"}

	sorted := append([]string(nil), inputs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && compareNumericString(sorted[j-1], sorted[j]) > 0; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	for i := range want {
		if sorted[i] != want[i] {
			t.Fatalf("index %d: got %q, want %q (full: %v)", i, sorted[i], want[i], sorted)
		}
	}
}
