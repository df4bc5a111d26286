package match

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
)

// These three scenarios score a single opportunity/company pair end to end
// and pin down the literal values a reviewer would check by hand: an
// exact-NAICS same-state pair, a family-NAICS cross-state pair, and an
// archived opportunity.

func putVector(t *testing.T, objects objectstore.ObjectStore, key string, vector []float32) {
	t.Helper()
	body, err := json.Marshal(struct {
		Vector []float32 `json:"vector"`
	}{Vector: vector})
	require.NoError(t, err)
	_, err = objects.Put(context.Background(), key, bytes.NewReader(body), objectstore.PutOptions{ContentType: "application/json"})
	require.NoError(t, err)
}

func TestScenario_ExactNAICSSameStateScoresHighConfidence(t *testing.T) {
	orch := newTestOrchestrator(t)
	future := orch.now().Add(180 * 24 * time.Hour)

	putVector(t, orch.Objects, "opp/OPP-1/summary", []float32{1, 0, 0})
	putVector(t, orch.Objects, "company/CO-1/summary", []float32{1, 0, 0})

	opp := opportunity.Opportunity{
		NoticeID:           "OPP-1",
		Title:              "Custom Software Development",
		Description:        "Custom software and cloud migration",
		Agency:             "Department of Veterans Affairs",
		NAICSCode:          "541511",
		PlaceOfPerformance: opportunity.PlaceOfPerformance{State: "VA"},
		ArchiveDate:        &future,
		Status:             opportunity.LifecycleActive,
		EmbeddingMetadata:  opportunity.EmbeddingMetadata{SummaryKey: "opp/OPP-1/summary"},
	}
	company := profile.CompanyProfile{
		CompanyID:           "CO-1",
		NAICSCodes:          []string{"541511"},
		Locations:           []profile.Location{{State: "VA"}},
		Certifications:      []string{"Small Business"},
		CapabilityStatement: "Custom software and cloud migration",
		RevenueRange:        "1m_5m",
		EmployeeCount:       "11_50",
		PastPerformance: []profile.PastPerformance{
			{Client: "Department of Veterans Affairs", Description: "Custom software and cloud migration", Value: 750_000, Period: "2025"},
		},
		EmbeddingMetadata: profile.EmbeddingMetadata{SummaryKey: "company/CO-1/summary"},
	}

	result, err := orch.Score(context.Background(), opp, company, "", false, nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.TotalScore, 0.75)
	require.Equal(t, ConfidenceHigh, result.Confidence)

	byName := componentsByName(result.Components)
	require.Equal(t, 1.0, byName["naics"].Score)
	require.Equal(t, 1.0, byName["geographic"].Score)
	require.Equal(t, 1.0, byName["certification"].Score)
}

func TestScenario_FamilyNAICSCrossStateScoresLowerConfidence(t *testing.T) {
	orch := newTestOrchestrator(t)

	opp := opportunity.Opportunity{
		NoticeID:           "OPP-2",
		Title:              "IT Support Services",
		NAICSCode:          "541512",
		PlaceOfPerformance: opportunity.PlaceOfPerformance{State: "TX"},
		Status:             opportunity.LifecycleActive,
	}
	company := profile.CompanyProfile{
		CompanyID:           "CO-2",
		NAICSCodes:          []string{"541511"},
		Locations:           []profile.Location{{State: "VA"}},
		CapabilityStatement: "IT support and help desk services",
	}

	result, err := orch.Score(context.Background(), opp, company, "", false, nil)
	require.NoError(t, err)

	byName := componentsByName(result.Components)
	require.Equal(t, 0.8, byName["naics"].Score)
	require.Equal(t, 0.2, byName["geographic"].Score)
	require.Contains(t, []Confidence{ConfidenceMedium, ConfidenceLow}, result.Confidence)
}

func TestScenario_ArchivedOpportunityFailsQuickFilterButStillPersists(t *testing.T) {
	orch := newTestOrchestrator(t)
	yesterday := orch.now().Add(-24 * time.Hour)

	opp := opportunity.Opportunity{
		NoticeID:           "OPP-3",
		Title:              "Expired Notice",
		NAICSCode:          "541511",
		PlaceOfPerformance: opportunity.PlaceOfPerformance{State: "VA"},
		ArchiveDate:        &yesterday,
		Status:             opportunity.LifecycleArchived,
	}
	company := profile.CompanyProfile{
		CompanyID:  "CO-3",
		NAICSCodes: []string{"541511"},
		Locations:  []profile.Location{{State: "VA"}},
	}

	result, err := orch.Score(context.Background(), opp, company, "", false, nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, result.TotalScore)
	require.Equal(t, ConfidenceNoMatch, result.Confidence)
	require.Contains(t, result.MatchReasons, "failed initial compatibility screening")

	stored, err := orch.Matches.Get(context.Background(), "CO-3", "OPP-3")
	require.NoError(t, err)
	require.NotEmpty(t, stored)
}

func componentsByName(components []ComponentResult) map[string]ComponentResult {
	out := make(map[string]ComponentResult, len(components))
	for _, c := range components {
		out[c.Name] = c
	}
	return out
}
