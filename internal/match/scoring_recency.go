package match

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
)

var recencyYearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// scoreRecency implements the C9 recency factor: exp(-days/365) computed
// from the most recent year mentioned in any past-performance entry's
// period field; 0 if no entry carries a parseable year.
func scoreRecency(c profile.CompanyProfile, now time.Time) ComponentResult {
	start := nowFn()
	var mostRecent int
	for _, entry := range c.PastPerformance {
		for _, y := range recencyYearPattern.FindAllString(entry.Period, -1) {
			year, err := strconv.Atoi(y)
			if err == nil && year > mostRecent {
				mostRecent = year
			}
		}
	}
	if mostRecent == 0 {
		return ComponentResult{Name: "recency", Status: ComponentNoData, ProcessingTimeMS: elapsedMS(start)}
	}

	reference := time.Date(mostRecent, time.December, 31, 0, 0, 0, 0, time.UTC)
	days := now.Sub(reference).Hours() / 24
	if days < 0 {
		days = 0
	}
	score := math.Exp(-days / 365)

	return ComponentResult{
		Name:   "recency",
		Score:  clamp01(score),
		Status: ComponentOK,
		Evidence: map[string]any{
			"mostRecentYear": mostRecent,
			"daysSince":      days,
		},
		ProcessingTimeMS: elapsedMS(start),
	}
}
