package util

import (
	"strings"
	"unicode/utf8"
)

// BioTags splits a bio into whitespace-separated tokens and drops tokens
// of one character or less. No other normalization is applied.
func BioTags(bio string) []string {
	fields := strings.Fields(bio)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) <= 1 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// DropEmpty returns tags without empty strings, preserving order.
func DropEmpty(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
