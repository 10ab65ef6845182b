package domain

import (
	"strings"
)

// NormalizeLocation trims, collapses inner whitespace and lowercases a location string.
// Catalog keys and approver eligibility both compare through it.
func NormalizeLocation(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// CleanLocations trims entries, drops blanks and removes duplicates that differ only by case or spacing
func CleanLocations(locations []string) []string {
	seen := make(map[string]struct{}, len(locations))
	cleaned := make([]string, 0, len(locations))
	for _, loc := range locations {
		display := strings.Join(strings.Fields(loc), " ")
		if display == "" {
			continue
		}
		key := NormalizeLocation(display)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, display)
	}
	return cleaned
}

// MappedLocationFor builds the legacy single-string location from a location set
func MappedLocationFor(locations []string) string {
	return strings.Join(CleanLocations(locations), ", ")
}
