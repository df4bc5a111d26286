package profile

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/llmclient"
)

var (
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern    = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	linkedInPattern = regexp.MustCompile(`(?i)(https?://)?(www\.)?linkedin\.com/in/[A-Za-z0-9\-_%]+`)
	capitalNamePattern = regexp.MustCompile(`^[A-Z][a-z]+(?:\s[A-Z][a-z]+){1,2}$`)
	addressPattern  = regexp.MustCompile(`\d+\s[A-Za-z0-9.\s]+,\s*[A-Za-z\s]+,\s*[A-Z]{2}\s*\d{5}`)
	yearRangePattern = regexp.MustCompile(`(?i)(19|20)(\d{2})\s*(-|–|to)\s*((19|20)(\d{2})|present)`)
)

var sectionHeadings = []string{"summary", "skills", "education", "experience", "certifications"}

// extractSection returns the body of a named section: text following a
// line that is (case-insensitively) exactly the heading, up to the next
// recognized heading or end of document.
func extractSection(lines []string, heading string) string {
	start := -1
	for i, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), heading) {
			start = i + 1
			break
		}
	}
	if start == -1 {
		return ""
	}
	var body []string
	for _, line := range lines[start:] {
		trimmed := strings.TrimSpace(line)
		if isAnySectionHeading(trimmed) {
			break
		}
		body = append(body, line)
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}

func isAnySectionHeading(line string) bool {
	for _, h := range sectionHeadings {
		if strings.EqualFold(line, h) {
			return true
		}
	}
	return false
}

// ExtractResume builds a ResumeRecord from cleaned resume text via regex
// extraction of contact fields and section bodies, computing years of
// experience by summing parsed date ranges, then asks the LLM to fill any
// field the regex pass left empty.
func ExtractResume(ctx context.Context, llm llmclient.Client, text string) (ResumeRecord, error) {
	lines := strings.Split(text, "\n")

	rec := ResumeRecord{
		Email:    firstMatch(emailPattern, text),
		Phone:    firstMatch(phonePattern, text),
		LinkedIn: firstMatch(linkedInPattern, text),
		Address:  firstMatch(addressPattern, text),
		Name:     findNameNearContact(lines),
		Summary:  extractSection(lines, "summary"),
	}
	rec.Skills = splitListSection(extractSection(lines, "skills"))
	rec.Education = splitListSection(extractSection(lines, "education"))
	rec.Experience = splitListSection(extractSection(lines, "experience"))
	rec.Certifications = splitListSection(extractSection(lines, "certifications"))
	rec.YearsExperience = sumYearRanges(text)
	rec.Confidence = resumeConfidence(rec)

	if llm != nil {
		fillGapsWithLLM(ctx, llm, text, &rec)
	}
	return rec, nil
}

func firstMatch(pattern *regexp.Regexp, text string) string {
	return pattern.FindString(text)
}

// findNameNearContact looks for the first capitalized two/three-word line
// within a few lines of an email or phone match, the common resume layout
// of "Jane Q. Doe" atop contact details.
func findNameNearContact(lines []string) string {
	anchor := -1
	for i, line := range lines {
		if emailPattern.MatchString(line) || phonePattern.MatchString(line) {
			anchor = i
			break
		}
	}
	window := lines
	if anchor >= 0 {
		lo := anchor - 3
		if lo < 0 {
			lo = 0
		}
		hi := anchor + 3
		if hi > len(lines) {
			hi = len(lines)
		}
		window = lines[lo:hi]
	}
	for _, line := range window {
		trimmed := strings.TrimSpace(line)
		if capitalNamePattern.MatchString(trimmed) {
			return trimmed
		}
	}
	return ""
}

func splitListSection(body string) []string {
	if body == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// sumYearRanges adds up every parsed "YYYY-YYYY"/"YYYY-present" range
// found in the text, the proxy for total years of experience.
func sumYearRanges(text string) float64 {
	matches := yearRangePattern.FindAllStringSubmatch(text, -1)
	var total float64
	for _, m := range matches {
		startYear, err := strconv.Atoi(m[1] + m[2])
		if err != nil {
			continue
		}
		var endYear int
		if strings.EqualFold(m[4], "present") {
			endYear = currentYear()
		} else {
			endYear, err = strconv.Atoi(m[4])
			if err != nil {
				continue
			}
		}
		if endYear > startYear {
			total += float64(endYear - startYear)
		}
	}
	return total
}

// currentYear is overridable in tests since time.Now() would otherwise
// make year-range assertions depend on wall-clock time.
var currentYear = func() int { return time.Now().Year() }

func resumeConfidence(rec ResumeRecord) float64 {
	hits := 0
	total := 5.0
	if rec.Name != "" {
		hits++
	}
	if rec.Email != "" {
		hits++
	}
	if rec.Phone != "" {
		hits++
	}
	if len(rec.Skills) > 0 {
		hits++
	}
	if len(rec.Experience) > 0 {
		hits++
	}
	return float64(hits) / total
}

func fillGapsWithLLM(ctx context.Context, llm llmclient.Client, text string, rec *ResumeRecord) {
	if rec.Name != "" && rec.Email != "" && len(rec.Skills) > 0 {
		return
	}
	system := "Extract the candidate's full name and top skills from this resume text. Respond concisely."
	resp, err := llm.Complete(ctx, system, text)
	if err != nil || strings.TrimSpace(resp) == "" {
		return
	}
	if rec.Name == "" {
		rec.Name = extractFieldFromResponse(resp, "name")
	}
	if len(rec.Skills) == 0 {
		if skills := extractFieldFromResponse(resp, "skills"); skills != "" {
			rec.Skills = strings.Split(skills, ",")
			for i := range rec.Skills {
				rec.Skills[i] = strings.TrimSpace(rec.Skills[i])
			}
		}
	}
}

// extractFieldFromResponse pulls "<field>: value" out of a free-text LLM
// completion; a gap-filling pass, not a strict protocol, so a missing
// field is simply left unfilled rather than erroring.
func extractFieldFromResponse(resp, field string) string {
	for _, line := range strings.Split(resp, "\n") {
		lower := strings.ToLower(line)
		if idx := strings.Index(lower, strings.ToLower(field)+":"); idx >= 0 {
			return strings.TrimSpace(line[idx+len(field)+1:])
		}
	}
	return ""
}
