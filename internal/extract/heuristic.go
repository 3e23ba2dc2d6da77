package extract

import (
	"regexp"
	"strings"
)

var (
	sentenceBoundaryPattern = regexp.MustCompile(`[.!?]\s+`)
	wordPattern             = regexp.MustCompile(`[A-Za-z']+`)
)

var imperativeStarters = map[string]struct{}{
	"add":         {},
	"create":      {},
	"implement":   {},
	"fix":         {},
	"update":      {},
	"write":       {},
	"check":       {},
	"verify":      {},
	"refactor":    {},
	"document":    {},
	"design":      {},
	"investigate": {},
}

// SplitSentences splits text after '.', '!' or '?' followed by whitespace.
// The terminal punctuation stays with its sentence and empty sentences are dropped.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for _, loc := range sentenceBoundaryPattern.FindAllStringIndex(text, -1) {
		sentences = appendNonEmpty(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	return appendNonEmpty(sentences, text[start:])
}

func appendNonEmpty(sentences []string, sentence string) []string {
	if s := strings.TrimSpace(sentence); s != "" {
		return append(sentences, s)
	}
	return sentences
}

// LooksImperative reports whether the first word of the sentence is a known imperative verb.
func LooksImperative(sentence string) bool {
	first := wordPattern.FindString(sentence)
	if first == "" {
		return false
	}
	_, ok := imperativeStarters[strings.ToLower(first)]
	return ok
}
