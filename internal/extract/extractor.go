// Package extract finds action items in free-form notes.
//
// Extract is the deterministic strategy: marked lines first, imperative sentences as a fallback.
// ModelExtractor delegates to a language model and never fails; see ModelExtractor.Extract.
package extract

import (
	"strings"
)

// Extract returns the distinct action items found in text, in document order.
func Extract(text string) []string {
	var extracted []string
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || !IsActionLine(line) {
			continue
		}
		if cleaned := CleanActionLine(line); cleaned != "" {
			extracted = append(extracted, cleaned)
		}
	}

	if len(extracted) == 0 {
		for _, sentence := range SplitSentences(text) {
			if LooksImperative(sentence) {
				extracted = append(extracted, sentence)
			}
		}
	}
	return Dedupe(extracted)
}

// Dedupe trims items, drops empty ones and removes case-insensitive duplicates keeping the first.
func Dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	unique := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}
