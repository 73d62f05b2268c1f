package index

import "strings"

// compareVersions orders two version strings descending by semver for
// target-search results: numeric components compare numerically,
// alphabetic components compare lexically, numeric beats alphabetic at
// the same position (pre-release-like suffixes sort after plain
// releases), and any remaining tie breaks on the lower-cased raw string.
//
// Lifted from zephyraoss-poppy-pkgs/internal/store.compareVersion, which
// solves exactly this problem for that package's own package_version
// strings without requiring a strict semver grammar (manifest versions in
// the wild aren't always strict semver, and neither are Swift tools
// versions here).
func compareVersions(a, b string) int {
	if a == b {
		return 0
	}
	ta := versionTokens(a)
	tb := versionTokens(b)
	n := len(ta)
	if len(tb) > n {
		n = len(tb)
	}
	for i := 0; i < n; i++ {
		if i >= len(ta) {
			if tokenHasValue(tb[i]) {
				if isNumericToken(tb[i]) {
					return -1
				}
				return 1
			}
			continue
		}
		if i >= len(tb) {
			if tokenHasValue(ta[i]) {
				if isNumericToken(ta[i]) {
					return 1
				}
				return -1
			}
			continue
		}
		if cmp := compareToken(ta[i], tb[i]); cmp != 0 {
			return cmp
		}
	}
	aa := strings.ToLower(a)
	bb := strings.ToLower(b)
	if aa > bb {
		return 1
	}
	if aa < bb {
		return -1
	}
	return 0
}

func versionTokens(v string) []string {
	parts := make([]string, 0, 8)
	var b strings.Builder
	mode := 0
	flush := func() {
		if b.Len() > 0 {
			parts = append(parts, b.String())
			b.Reset()
		}
	}
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			if mode != 1 {
				flush()
				mode = 1
			}
			b.WriteRune(r)
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			if mode != 2 {
				flush()
				mode = 2
			}
			b.WriteRune(r)
		default:
			flush()
			mode = 0
		}
	}
	flush()
	return parts
}

func tokenHasValue(t string) bool {
	for _, r := range t {
		if r >= '1' && r <= '9' {
			return true
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

func compareToken(a, b string) int {
	aNum := isNumericToken(a)
	bNum := isNumericToken(b)
	if aNum && bNum {
		aa := strings.TrimLeft(a, "0")
		bb := strings.TrimLeft(b, "0")
		if aa == "" {
			aa = "0"
		}
		if bb == "" {
			bb = "0"
		}
		if len(aa) != len(bb) {
			if len(aa) > len(bb) {
				return 1
			}
			return -1
		}
		if aa > bb {
			return 1
		}
		if aa < bb {
			return -1
		}
		return 0
	}
	if aNum && !bNum {
		return 1
	}
	if !aNum && bNum {
		return -1
	}
	aa := strings.ToLower(a)
	bb := strings.ToLower(b)
	if aa > bb {
		return 1
	}
	if aa < bb {
		return -1
	}
	return 0
}

func isNumericToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
