package match

import (
	"context"
	"encoding/json"
	"io"
	"math"

	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
)

// vectorRecord is the common shape of every embedding record in the object
// store (opportunity.embeddingRecord, mlevel.Record, profile's
// tenant-scoped document embeddings): each JSON-encodes its vector under
// the "vector" key.
type vectorRecord struct {
	Vector []float32 `json:"vector"`
}

func readVector(ctx context.Context, objects objectstore.ObjectStore, key string) ([]float32, error) {
	if key == "" {
		return nil, nil
	}
	rc, _, err := objects.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	var rec vectorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec.Vector, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SemanticInput bundles the embedding keys scoreSemantic needs: the
// opportunity's main (summary-level) embedding, the company's
// profile-level embedding, and up to the company's own top chunk
// embeddings for optional re-ranking against the opportunity's main
// vector. SimilarityThreshold, when positive, is the minimum similarity
// below which the component reports no usable signal instead of a weak
// score.
type SemanticInput struct {
	OpportunityMainKey  string
	CompanyProfileKey   string
	CompanyChunkKeys    []string
	SimilarityThreshold float64
}

// scoreSemantic implements the C9 semantic similarity component: cosine
// similarity between the opportunity's main embedding and the company's
// profile embedding, re-ranked against the mean of the company's own
// top-3 chunk embeddings (each compared to the opportunity's main vector)
// when available, per the spec's max-over-chunks resolution.
func scoreSemantic(ctx context.Context, objects objectstore.ObjectStore, in SemanticInput) ComponentResult {
	start := nowFn()
	if in.OpportunityMainKey == "" || in.CompanyProfileKey == "" {
		return ComponentResult{Name: "semantic", Status: ComponentNoData, ProcessingTimeMS: elapsedMS(start)}
	}

	mainVec, err := readVector(ctx, objects, in.OpportunityMainKey)
	if err != nil || len(mainVec) == 0 {
		return ComponentResult{Name: "semantic", Status: ComponentError, ProcessingTimeMS: elapsedMS(start)}
	}
	profileVec, err := readVector(ctx, objects, in.CompanyProfileKey)
	if err != nil || len(profileVec) == 0 {
		return ComponentResult{Name: "semantic", Status: ComponentError, ProcessingTimeMS: elapsedMS(start)}
	}

	profileVsMain := cosineSimilarity(profileVec, mainVec)
	best := profileVsMain

	if n := len(in.CompanyChunkKeys); n > 0 {
		limit := n
		if limit > 3 {
			limit = 3
		}
		var sum float64
		var count int
		for _, key := range in.CompanyChunkKeys[:limit] {
			chunkVec, err := readVector(ctx, objects, key)
			if err != nil || len(chunkVec) == 0 {
				continue
			}
			sum += cosineSimilarity(chunkVec, mainVec)
			count++
		}
		if count > 0 {
			if mean := sum / float64(count); mean > best {
				best = mean
			}
		}
	}

	if in.SimilarityThreshold > 0 && best < in.SimilarityThreshold {
		return ComponentResult{
			Name:   "semantic",
			Status: ComponentNoData,
			Evidence: map[string]any{
				"profileVsMain":            profileVsMain,
				"belowSimilarityThreshold": true,
			},
			ProcessingTimeMS: elapsedMS(start),
		}
	}

	return ComponentResult{
		Name:   "semantic",
		Score:  clamp01(best),
		Status: ComponentOK,
		Evidence: map[string]any{
			"profileVsMain": profileVsMain,
		},
		ProcessingTimeMS: elapsedMS(start),
	}
}
