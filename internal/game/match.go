package game

import "strings"

// UniqueMatch resolves an abbreviation against names, ignoring case. An exact
// match always wins; otherwise the abbreviation must prefix exactly one name.
// It returns the index of the chosen name.
func UniqueMatch(abbrev string, names []string) (int, bool) {
	abbrev = strings.TrimSpace(abbrev)
	if abbrev == "" {
		return -1, false
	}
	found := -1
	for i, name := range names {
		if strings.EqualFold(name, abbrev) {
			return i, true
		}
		if len(name) >= len(abbrev) && strings.EqualFold(name[:len(abbrev)], abbrev) {
			if found >= 0 {
				found = -2
				continue
			}
			if found == -1 {
				found = i
			}
		}
	}
	if found < 0 {
		return -1, false
	}
	return found, true
}
