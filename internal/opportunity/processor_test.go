package opportunity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tjaddison/govbiz-ai-sub002/internal/embedclient"
	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/vectorindex"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string, _ embedclient.Role) ([]float32, error) {
	v := make([]float32, 8)
	for i := range v {
		v[i] = float32(len(text)%7) / 10
	}
	return v, nil
}

func newTestProcessor() *Processor {
	return &Processor{
		Store:       kvstore.NewMemoryOpportunityStore(),
		Objects:     objectstore.NewMemoryStore(),
		VectorIndex: vectorindex.NewMemoryIndex(8),
		Embedder:    fakeEmbedder{},
		Now:         func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestProcessor_ProcessCompletesAndIsIdempotent(t *testing.T) {
	p := newTestProcessor()
	in := Input{
		NoticeID: "N1",
		Opportunity: Opportunity{
			Title:       "Cloud Migration Support Services",
			Description: "Provide cloud migration and modernization services.",
			Department:  "DOD",
			NAICSCode:   "541512",
			PostedDate:  time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	res := p.Process(context.Background(), in)
	require.Equal(t, StatusCompleted, res.Status)

	again := p.Process(context.Background(), in)
	require.Equal(t, StatusAlreadyExists, again.Status)
}

func TestProcessor_MissingRequiredFieldFails(t *testing.T) {
	p := newTestProcessor()
	res := p.Process(context.Background(), Input{NoticeID: "N2", Opportunity: Opportunity{}})
	require.Equal(t, StatusError, res.Status)
	require.NotEmpty(t, res.Error)
}
