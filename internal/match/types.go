// Package match implements the Quick Filter (C8), the eight scoring
// components (C9), and the Match Orchestrator (C10): scoring one
// (opportunity, company profile) pair and persisting the result.
package match

import "time"

// Confidence buckets a match's total score.
type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceNoMatch Confidence = "NO_MATCH"
)

// componentNames are the 8 C9 scoring components, in the order they're
// fanned out and reported.
var componentNames = []string{
	"semantic", "keyword", "naics", "past_performance",
	"certification", "geographic", "capacity", "recency",
}

// ComponentStatus reports whether a scoring component produced a usable
// score.
type ComponentStatus string

const (
	ComponentOK      ComponentStatus = "ok"
	ComponentError   ComponentStatus = "error"
	ComponentNoData  ComponentStatus = "no_data"
)

// ComponentResult is one C9 component's output.
type ComponentResult struct {
	Name            string          `json:"name"`
	Score           float64         `json:"score"`
	Status          ComponentStatus `json:"status"`
	Evidence        map[string]any  `json:"evidence,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
	ProcessingTimeMS int64          `json:"processingTimeMs"`
}

// QuickFilterResult is C8's boolean prefilter verdict.
type QuickFilterResult struct {
	IsPotentialMatch bool           `json:"isPotentialMatch"`
	FilterDetails    map[string]any `json:"filterDetails"`
}

// Result is the full C10 match record persisted to the matches store.
type Result struct {
	NoticeID        string            `json:"noticeId"`
	CompanyID       string            `json:"companyId"`
	TotalScore      float64           `json:"totalScore"`
	Confidence      Confidence        `json:"confidence"`
	Components      []ComponentResult `json:"components"`
	MatchReasons    []string          `json:"matchReasons"`
	Recommendations []string          `json:"recommendations"`
	ActionItems     []string          `json:"actionItems"`
	PartialScoring  bool              `json:"partialScoring"`
	Cached          bool              `json:"cached"`
	ComputedAt      time.Time         `json:"computedAt"`
}
