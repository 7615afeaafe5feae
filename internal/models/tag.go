package models

import "strings"

// Tag is a named category. Count records post-association events and only
// ever grows.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NormalizeTagName lowercases and trims a tag name.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeTags normalizes every name, drops blanks and collapses duplicates
// while keeping first-seen order.
func NormalizeTags(names []string) []string {
	normalized := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = NormalizeTagName(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		normalized = append(normalized, name)
	}
	return normalized
}
