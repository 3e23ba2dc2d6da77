package extract

import (
	"regexp"
	"strings"
)

var bulletPrefixPattern = regexp.MustCompile(`^\s*([-*•]|\d+\.)\s+`)

var keywordPrefixes = []string{
	"todo:",
	"action:",
	"next:",
}

var checkboxMarkers = []string{
	"[ ]",
	"[todo]",
}

// IsActionLine reports whether a line carries a bullet, numbered-list, keyword prefix or checkbox marker.
func IsActionLine(line string) bool {
	stripped := strings.ToLower(strings.TrimSpace(line))
	if stripped == "" {
		return false
	}
	if bulletPrefixPattern.MatchString(stripped) {
		return true
	}
	if hasAnyPrefix(stripped, keywordPrefixes) != "" {
		return true
	}
	for _, marker := range checkboxMarkers {
		if strings.Contains(stripped, marker) {
			return true
		}
	}
	return false
}

// CleanActionLine removes the list marker, keyword prefix and leading checkbox from a marked line.
// The result may be empty when the line held nothing but markers.
func CleanActionLine(line string) string {
	cleaned := strings.TrimSpace(line)
	cleaned = strings.TrimSpace(bulletPrefixPattern.ReplaceAllString(cleaned, ""))
	cleaned = trimLeadingCheckbox(cleaned)
	if prefix := hasAnyPrefix(strings.ToLower(cleaned), keywordPrefixes); prefix != "" {
		cleaned = strings.TrimSpace(cleaned[len(prefix):])
		cleaned = trimLeadingCheckbox(cleaned)
	}
	return cleaned
}

func trimLeadingCheckbox(s string) string {
	for _, marker := range checkboxMarkers {
		if strings.HasPrefix(strings.ToLower(s), marker) {
			s = strings.TrimSpace(s[len(marker):])
		}
	}
	return s
}

// hasAnyPrefix returns the first prefix s starts with, or "" when none match.
func hasAnyPrefix(s string, prefixes []string) string {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return prefix
		}
	}
	return ""
}
