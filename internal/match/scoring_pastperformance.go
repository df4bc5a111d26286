package match

import (
	"math"
	"strings"

	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
)

// scorePastPerformance implements the C9 past performance component: each
// past-performance entry is scored on agency match, dollar-scale proximity,
// and domain similarity, then aggregated as 1 - Π(1 - s) over the entries:
// each extra entry adds less than the one before, and the aggregate
// approaches 1 as entries accumulate, so several mediocre entries can
// out-score one excellent one.
func scorePastPerformance(o opportunity.Opportunity, c profile.CompanyProfile) ComponentResult {
	start := nowFn()
	if len(c.PastPerformance) == 0 {
		return ComponentResult{Name: "past_performance", Status: ComponentNoData, ProcessingTimeMS: elapsedMS(start)}
	}

	complement := 1.0
	var entryScores []float64
	for _, entry := range c.PastPerformance {
		agency := agencyMatchScore(entry.Client, o.Agency, o.Department)
		scale := dollarScaleProximity(entry.Value, o.Award.Amount)
		domain := domainSimilarity(entry.Description, o.Description+" "+o.Title)
		s := clamp01((agency + scale + domain) / 3)
		entryScores = append(entryScores, s)
		complement *= 1 - s
	}
	aggregate := 1 - complement

	return ComponentResult{
		Name:   "past_performance",
		Score:  clamp01(aggregate),
		Status: ComponentOK,
		Evidence: map[string]any{
			"entryCount":  len(c.PastPerformance),
			"entryScores": entryScores,
		},
		ProcessingTimeMS: elapsedMS(start),
	}
}

func agencyMatchScore(client, agency, department string) float64 {
	client = strings.ToLower(client)
	if client == "" {
		return 0
	}
	if agency != "" && strings.Contains(client, strings.ToLower(agency)) {
		return 1.0
	}
	if department != "" && strings.Contains(client, strings.ToLower(department)) {
		return 1.0
	}
	return 0
}

// dollarScaleProximity compares two award values on a log scale, capped so
// a missing value on either side doesn't zero the whole score.
func dollarScaleProximity(pastValue, oppValue float64) float64 {
	if pastValue <= 0 || oppValue <= 0 {
		return 0.5 // unknown scale: neutral, not disqualifying
	}
	ratio := math.Abs(math.Log10(pastValue) - math.Log10(oppValue))
	return clamp01(1 - ratio/2)
}

// domainSimilarity approximates semantic closeness between a past-
// performance description and the opportunity's text via the same
// tokenization the keyword component uses, trading embedding-call cost for
// a cheap per-entry signal evaluated many times per match.
func domainSimilarity(a, b string) float64 {
	ta, tb := tokenizeForKeyword(a), tokenizeForKeyword(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	return setOverlap(ta, tb)
}
