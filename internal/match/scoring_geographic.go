package match

import (
	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
)

// regions groups states for same-region geographic scoring; adjacency
// between states of different regions is not modeled.
var regions = map[string]string{
	"VA": "south-atlantic", "MD": "south-atlantic", "DC": "south-atlantic",
	"NC": "south-atlantic", "SC": "south-atlantic", "GA": "south-atlantic", "FL": "south-atlantic",
	"NY": "northeast", "NJ": "northeast", "PA": "northeast", "CT": "northeast", "MA": "northeast",
	"CA": "pacific", "OR": "pacific", "WA": "pacific",
	"TX": "west-south-central", "OK": "west-south-central", "LA": "west-south-central", "AR": "west-south-central",
	"IL": "east-north-central", "OH": "east-north-central", "MI": "east-north-central", "IN": "east-north-central", "WI": "east-north-central",
}

// scoreGeographic implements the C9 geographic component. An opportunity
// with no place-of-performance state counts as remote-eligible and scores
// 1.0; otherwise the best company location scores 1.0 for the same state,
// 0.6 for another state of the same region, and 0.2 for anything else. A
// company with no locations yields no data.
func scoreGeographic(o opportunity.Opportunity, c profile.CompanyProfile) ComponentResult {
	start := nowFn()
	oppState := o.PlaceOfPerformance.State
	if oppState == "" {
		return ComponentResult{
			Name: "geographic", Score: 1.0, Status: ComponentOK,
			Evidence:         map[string]any{"reason": "remote/unspecified place of performance"},
			ProcessingTimeMS: elapsedMS(start),
		}
	}
	if len(c.Locations) == 0 {
		return ComponentResult{Name: "geographic", Status: ComponentNoData, ProcessingTimeMS: elapsedMS(start)}
	}

	best := 0.2
	var bestState string
	for _, loc := range c.Locations {
		s := stateScore(oppState, loc.State)
		if s > best {
			best = s
			bestState = loc.State
		}
	}

	return ComponentResult{
		Name:   "geographic",
		Score:  best,
		Status: ComponentOK,
		Evidence: map[string]any{
			"opportunityState": oppState,
			"bestCompanyState": bestState,
		},
		ProcessingTimeMS: elapsedMS(start),
	}
}

func stateScore(oppState, companyState string) float64 {
	if oppState == companyState {
		return 1.0
	}
	if regions[oppState] != "" && regions[oppState] == regions[companyState] {
		return 0.6
	}
	return 0.2
}
