package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
	"github.com/tjaddison/govbiz-ai-sub002/internal/telemetry"
	"github.com/tjaddison/govbiz-ai-sub002/internal/weightconfig"
)

func sampleOpportunity() opportunity.Opportunity {
	return opportunity.Opportunity{
		NoticeID:    "NOTICE-1",
		Title:       "Cloud migration support services",
		Description: "The agency requires cloud migration and DevSecOps support.",
		Agency:      "General Services Administration",
		NAICSCode:   "541512",
		SetAsideCode: "8A",
		PlaceOfPerformance: opportunity.PlaceOfPerformance{State: "VA"},
		Status:      opportunity.LifecycleActive,
	}
}

func sampleCompany() profile.CompanyProfile {
	return profile.CompanyProfile{
		CompanyID:           "co-1",
		CapabilityStatement: "We provide cloud migration and DevSecOps services to federal agencies.",
		NAICSCodes:          []string{"541512"},
		Certifications:      []string{"8(a)"},
		RevenueRange:        "5m_10m",
		EmployeeCount:       "51_200",
		Locations:           []profile.Location{{State: "VA"}},
		PastPerformance: []profile.PastPerformance{
			{Client: "General Services Administration", Description: "Cloud migration for GSA", Value: 900_000, Period: "2024-2025"},
		},
	}
}

func TestQuickFilter_PassesOnMatchingPair(t *testing.T) {
	result := QuickFilter(sampleOpportunity(), sampleCompany())
	require.True(t, result.IsPotentialMatch)
}

func TestQuickFilter_FailsOnArchivedOpportunity(t *testing.T) {
	opp := sampleOpportunity()
	opp.Status = opportunity.LifecycleArchived
	result := QuickFilter(opp, sampleCompany())
	require.False(t, result.IsPotentialMatch)
}

func TestQuickFilter_FailsOnMissingSetAsideCertification(t *testing.T) {
	company := sampleCompany()
	company.Certifications = nil
	result := QuickFilter(sampleOpportunity(), company)
	require.False(t, result.IsPotentialMatch)
}

func TestScoreNAICS_ExactMatchScoresOne(t *testing.T) {
	r := scoreNAICS("541512", []string{"541512"})
	require.Equal(t, 1.0, r.Score)
}

func TestScoreNAICS_FamilyMatchScoresPartial(t *testing.T) {
	r := scoreNAICS("541512", []string{"541990"})
	require.Equal(t, 0.4, r.Score)
}

func TestScoreGeographic_SameStateScoresOne(t *testing.T) {
	r := scoreGeographic(sampleOpportunity(), sampleCompany())
	require.Equal(t, 1.0, r.Score)
}

func TestScoreGeographic_RemoteScoresOne(t *testing.T) {
	opp := sampleOpportunity()
	opp.PlaceOfPerformance.State = ""
	r := scoreGeographic(opp, sampleCompany())
	require.Equal(t, 1.0, r.Score)
}

func TestScoreCertification_FullySatisfiedScoresOne(t *testing.T) {
	r := scoreCertification("8A", []string{"8(a)"})
	require.Equal(t, 1.0, r.Score)
}

func TestScoreCertification_MissingCertScoresZero(t *testing.T) {
	r := scoreCertification("8A", nil)
	require.Equal(t, 0.0, r.Score)
}

func TestScoreKeyword_SharedTermsScorePositive(t *testing.T) {
	r := scoreKeyword(sampleOpportunity().Description, sampleCompany().CapabilityStatement)
	require.Equal(t, ComponentOK, r.Status)
	require.Greater(t, r.Score, 0.0)
}

func TestScoreRecency_RecentEntryScoresNearOne(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	r := scoreRecency(sampleCompany(), now)
	require.Equal(t, ComponentOK, r.Status)
	require.Greater(t, r.Score, 0.9)
}

func TestScoreRecency_NoPastPerformanceIsNoData(t *testing.T) {
	r := scoreRecency(profile.CompanyProfile{}, time.Now())
	require.Equal(t, ComponentNoData, r.Status)
}

func TestDeriveConfidence_HighScoreHighBand(t *testing.T) {
	components := []ComponentResult{
		{Name: "a", Score: 0.8, Status: ComponentOK},
		{Name: "b", Score: 0.82, Status: ComponentOK},
	}
	require.Equal(t, ConfidenceHigh, deriveConfidence(0.8, components, defaultCVThreshold))
}

func TestDeriveConfidence_HighDispersionDownShifts(t *testing.T) {
	components := []ComponentResult{
		{Name: "a", Score: 0.05, Status: ComponentOK},
		{Name: "b", Score: 1.0, Status: ComponentOK},
		{Name: "c", Score: 1.0, Status: ComponentOK},
	}
	require.Equal(t, ConfidenceMedium, deriveConfidence(0.76, components, defaultCVThreshold))
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	store := weightconfig.NewStore(kvstore.NewMemoryWeightConfigStore(), kvstore.NewMemoryAuditLogStore(), telemetry.NoopMetrics{}, 16)
	return &Orchestrator{
		Objects: objectstore.NewMemoryStore(),
		Matches: kvstore.NewMemoryMatchStore(),
		Configs: store,
		Now:     func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestOrchestrator_Score_PersistsAndReturnsResult(t *testing.T) {
	orch := newTestOrchestrator(t)
	result, err := orch.Score(context.Background(), sampleOpportunity(), sampleCompany(), "", false, nil)
	require.NoError(t, err)
	require.Greater(t, result.TotalScore, 0.0)
	require.Len(t, result.Components, 8)

	stored, err := orch.Matches.Get(context.Background(), "co-1", "NOTICE-1")
	require.NoError(t, err)
	require.NotEmpty(t, stored)
}

func TestOrchestrator_Score_QuickFilterFailureZeroesScore(t *testing.T) {
	orch := newTestOrchestrator(t)
	opp := sampleOpportunity()
	opp.Status = opportunity.LifecycleArchived
	result, err := orch.Score(context.Background(), opp, sampleCompany(), "", false, nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, result.TotalScore)
	require.Equal(t, ConfidenceNoMatch, result.Confidence)
	require.Contains(t, result.MatchReasons, "failed initial compatibility screening")
}
