package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// classifyViaComplete prompts the model to score text against each label as
// a JSON object of label -> 0..1 confidence, then parses the response.
// Malformed or missing labels default to a score of 0 rather than erroring,
// since classification is one signal among several weighted channels.
func classifyViaComplete(ctx context.Context, c Client, text string, labels []string) (map[string]float64, error) {
	prompt := buildClassifyPrompt(text, labels)
	raw, err := c.Complete(ctx, "You are a precise document classifier. Respond with JSON only.", prompt)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return parseClassifyResponse(raw, labels), nil
}

func buildClassifyPrompt(text string, labels []string) string {
	var sb strings.Builder
	sb.WriteString("Score how well the following document matches each of these categories, on a scale from 0.0 to 1.0. ")
	sb.WriteString("Respond with a single JSON object mapping each category name to its score, nothing else.\n\n")
	sb.WriteString("Categories: " + strings.Join(labels, ", ") + "\n\n")
	sb.WriteString("Document:\n" + text)
	return sb.String()
}

func parseClassifyResponse(raw string, labels []string) map[string]float64 {
	out := make(map[string]float64, len(labels))
	for _, l := range labels {
		out[l] = 0
	}
	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return out
	}
	var parsed map[string]float64
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return out
	}
	for _, l := range labels {
		if v, ok := parsed[l]; ok {
			out[l] = clamp01(v)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
