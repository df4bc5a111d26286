package extract

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`[ \t]+`)
	blankLineRun  = regexp.MustCompile(`\n{3,}`)
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

	footerNoise = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*page\s+\d+\s+of\s+\d+\s*$`),
		regexp.MustCompile(`(?i)^\s*confidential.*$`),
		regexp.MustCompile(`(?i)^\s*copyright.*$`),
		regexp.MustCompile(`(?i)^\s*all rights reserved\.?\s*$`),
	}
)

// Clean normalizes extracted text: newlines are unified, control characters
// (other than \n) are dropped, runs of horizontal whitespace collapse to a
// single space, excess blank lines collapse, and a small list of recurring
// footer boilerplate lines is stripped.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = controlChars.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := whitespaceRun.ReplaceAllString(line, " ")
		trimmed = strings.TrimSpace(trimmed)
		if isFooterNoise(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	text = strings.Join(kept, "\n")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func isFooterNoise(line string) bool {
	if line == "" {
		return false
	}
	for _, re := range footerNoise {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
