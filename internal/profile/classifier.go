package profile

import (
	"context"
	"regexp"
	"strings"

	"github.com/tjaddison/govbiz-ai-sub002/internal/llmclient"
)

// classifyLabels are the candidate categories sent to the LLM channel.
var classifyLabels = []string{string(CategoryResume), string(CategoryCapability)}

const (
	weightFilename  = 0.2
	weightKeyword   = 0.4
	weightStructure = 0.2
	weightLLM       = 0.2
)

var resumeFilenameHints = []string{"resume", "cv", "curriculum"}
var capabilityFilenameHints = []string{"capability", "capabilities", "statement", "overview"}

var resumeKeywords = []string{
	"experience", "education", "skills", "objective", "employment",
	"references", "certifications", "references available",
}
var capabilityKeywords = []string{
	"core competencies", "past performance", "capability statement",
	"naics", "duns", "cage", "contract vehicle", "socioeconomic",
}

var dateRangePattern = regexp.MustCompile(`(?i)\b(19|20)\d{2}\s*(-|–|to)\s*((19|20)\d{2}|present)\b`)
var degreePattern = regexp.MustCompile(`(?i)\b(b\.?s\.?|m\.?s\.?|m\.?b\.?a\.?|ph\.?d\.?|bachelor|master|associate)\b`)
var execSummaryPattern = regexp.MustCompile(`(?i)\bexecutive summary\b`)

// Classification is the classifier's output: a score per candidate
// category plus the winning category and confidence band.
type Classification struct {
	Scores     map[Category]float64 `json:"scores"`
	Category   Category             `json:"category"`
	Confidence float64              `json:"confidence"`
	Band       ConfidenceBand       `json:"band"`
}

// Classify scores filename, document text, and an LLM probability vector
// against the candidate categories, blending all four channels at their
// fixed weights. A winning score below 0.4 classifies as CategoryOther.
func Classify(ctx context.Context, llm llmclient.Client, filename, text string) (Classification, error) {
	filenameScores := filenameChannel(filename)
	keywordScores := keywordChannel(text)
	structureScores := structureChannel(text)

	llmScores := map[Category]float64{}
	if llm != nil {
		raw, err := llm.Classify(ctx, text, classifyLabels)
		if err == nil {
			for _, label := range classifyLabels {
				llmScores[Category(label)] = raw[label]
			}
		}
	}

	combined := map[Category]float64{
		CategoryResume:     blend(filenameScores[CategoryResume], keywordScores[CategoryResume], structureScores[CategoryResume], llmScores[CategoryResume]),
		CategoryCapability: blend(filenameScores[CategoryCapability], keywordScores[CategoryCapability], structureScores[CategoryCapability], llmScores[CategoryCapability]),
	}

	winner, score := CategoryOther, 0.0
	for cat, s := range combined {
		if s > score {
			winner, score = cat, s
		}
	}
	if score < 0.4 {
		winner = CategoryOther
	}

	return Classification{
		Scores:     combined,
		Category:   winner,
		Confidence: score,
		Band:       Band(score),
	}, nil
}

func blend(filenameScore, keywordScore, structureScore, llmScore float64) float64 {
	return weightFilename*filenameScore + weightKeyword*keywordScore + weightStructure*structureScore + weightLLM*llmScore
}

func filenameChannel(filename string) map[Category]float64 {
	lower := strings.ToLower(filename)
	scores := map[Category]float64{}
	if containsAny(lower, resumeFilenameHints) {
		scores[CategoryResume] = 1.0
	}
	if containsAny(lower, capabilityFilenameHints) {
		scores[CategoryCapability] = 1.0
	}
	return scores
}

// keywordChannel counts corpus keyword hits normalized by document length
// (hits per 100 words), capped at 1.0.
func keywordChannel(text string) map[Category]float64 {
	lower := strings.ToLower(text)
	words := len(strings.Fields(text))
	if words == 0 {
		return map[Category]float64{}
	}
	norm := func(keywords []string) float64 {
		hits := 0
		for _, k := range keywords {
			hits += strings.Count(lower, k)
		}
		score := float64(hits) / (float64(words) / 100.0)
		if score > 1 {
			score = 1
		}
		return score
	}
	return map[Category]float64{
		CategoryResume:     norm(resumeKeywords),
		CategoryCapability: norm(capabilityKeywords),
	}
}

// structureChannel looks for date ranges + degree mentions (resume
// signals) and an "Executive Summary" marker (capability-statement
// signal).
func structureChannel(text string) map[Category]float64 {
	scores := map[Category]float64{}
	dateHits := len(dateRangePattern.FindAllString(text, -1))
	degreeHits := len(degreePattern.FindAllString(text, -1))
	if dateHits > 0 || degreeHits > 0 {
		score := 0.5*minF(float64(dateHits)/3, 1) + 0.5*minF(float64(degreeHits)/2, 1)
		scores[CategoryResume] = score
	}
	if execSummaryPattern.MatchString(text) {
		scores[CategoryCapability] = 1.0
	}
	return scores
}

func containsAny(s string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
