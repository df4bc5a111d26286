package profile

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/tjaddison/govbiz-ai-sub002/internal/llmclient"
)

var (
	dunsPattern    = regexp.MustCompile(`(?i)\bDUNS\s*#?:?\s*(\d{9})\b`)
	cagePattern    = regexp.MustCompile(`(?i)\bCAGE\s*(?:Code)?\s*#?:?\s*([A-Z0-9]{5})\b`)
	foundedPattern = regexp.MustCompile(`(?i)\b(?:founded|established)\s*(?:in)?\s*((19|20)\d{2})\b`)
	certPattern    = regexp.MustCompile(`(?i)\b(8\(a\)|(?:HUBZone|WOSB|EDWOSB|SDVOSB|VOSB|SDB|ISO\s?9001|CMMI[- ]?(?:L\d|Level\s?\d))\b)`)
)

var missionMarkers = []string{"mission statement", "our mission", "mission:"}
var capabilityMarkers = []string{"core capabilities", "core competencies", "capabilities include"}

// ExtractCapability builds a CapabilityRecord from cleaned capability
// statement text via regex extraction of identifiers and section markers,
// with an LLM enrichment pass for the company overview narrative fields.
func ExtractCapability(ctx context.Context, llm llmclient.Client, text string) (CapabilityRecord, error) {
	rec := CapabilityRecord{
		DUNS:             firstGroup(dunsPattern, text),
		CAGE:             firstGroup(cagePattern, text),
		FoundedYear:      atoiOr(firstGroup(foundedPattern, text), 0),
		Mission:          extractAfterMarker(text, missionMarkers),
		CoreCapabilities: splitListSection(extractAfterMarker(text, capabilityMarkers)),
		Certifications:   dedupe(certPattern.FindAllString(text, -1)),
		Contact: Contact{
			Email: firstMatch(emailPattern, text),
			Phone: firstMatch(phonePattern, text),
		},
	}
	rec.Confidence = capabilityConfidence(rec)

	if llm != nil && (rec.Mission == "" || len(rec.CoreCapabilities) == 0 || rec.CompanyName == "") {
		enrichWithLLM(ctx, llm, text, &rec)
	}
	return rec, nil
}

func firstGroup(pattern *regexp.Regexp, text string) string {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// extractAfterMarker returns the paragraph following the first line that
// contains one of markers, up to the next blank line.
func extractAfterMarker(text string, markers []string) string {
	lower := strings.ToLower(text)
	lines := strings.Split(text, "\n")
	lowerLines := strings.Split(lower, "\n")

	for i, line := range lowerLines {
		for _, marker := range markers {
			if strings.Contains(line, marker) {
				var body []string
				for _, l := range lines[i+1:] {
					if strings.TrimSpace(l) == "" {
						break
					}
					body = append(body, l)
				}
				return strings.TrimSpace(strings.Join(body, "\n"))
			}
		}
	}
	return ""
}

func dedupe(items []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, item := range items {
		key := strings.ToUpper(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func capabilityConfidence(rec CapabilityRecord) float64 {
	hits := 0
	total := 5.0
	if rec.DUNS != "" {
		hits++
	}
	if rec.CAGE != "" {
		hits++
	}
	if rec.Mission != "" {
		hits++
	}
	if len(rec.CoreCapabilities) > 0 {
		hits++
	}
	if len(rec.Certifications) > 0 {
		hits++
	}
	return float64(hits) / total
}

func enrichWithLLM(ctx context.Context, llm llmclient.Client, text string, rec *CapabilityRecord) {
	system := "Extract the company's name, mission statement, and core capabilities list from this capability statement. Respond as 'name: ...', 'mission: ...', 'capabilities: item1, item2, ...' on separate lines."
	resp, err := llm.Complete(ctx, system, text)
	if err != nil || strings.TrimSpace(resp) == "" {
		return
	}
	if rec.CompanyName == "" {
		rec.CompanyName = extractFieldFromResponse(resp, "name")
	}
	if rec.Mission == "" {
		rec.Mission = extractFieldFromResponse(resp, "mission")
	}
	if len(rec.CoreCapabilities) == 0 {
		if caps := extractFieldFromResponse(resp, "capabilities"); caps != "" {
			parts := strings.Split(caps, ",")
			for _, p := range parts {
				if trimmed := strings.TrimSpace(p); trimmed != "" {
					rec.CoreCapabilities = append(rec.CoreCapabilities, trimmed)
				}
			}
		}
	}
}
