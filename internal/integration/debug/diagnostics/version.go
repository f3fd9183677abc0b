package diagnostics

import "strings"

// CompareVersions compares dotted versions segment by segment as numbers
// and returns -1, 0 or 1. Missing segments count as zero and each segment
// is read up to its first non-digit, so "3.9" == "3.9.0" and
// "3.10.0" > "3.9.1".
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := max(len(as), len(bs))
	for i := 0; i < n; i++ {
		if c := compareDigits(segment(as, i), segment(bs, i)); c != 0 {
			return c
		}
	}
	return 0
}

// segment returns the leading digits of parts[i] without leading zeros.
func segment(parts []string, i int) string {
	if i >= len(parts) {
		return ""
	}
	s := parts[i]
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return strings.TrimLeft(s[:end], "0")
}

// compareDigits compares two digit strings without leading zeros as
// numbers of arbitrary size.
func compareDigits(x, y string) int {
	switch {
	case len(x) < len(y):
		return -1
	case len(x) > len(y):
		return 1
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
