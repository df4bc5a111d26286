package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_SearchFiltersAndRanks(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(3)

	require.NoError(t, idx.Upsert(ctx, EntityOpportunity, "OPP-1", []float32{1, 0, 0}, map[string]string{"naics": "541511", "state": "VA"}))
	require.NoError(t, idx.Upsert(ctx, EntityOpportunity, "OPP-2", []float32{0, 1, 0}, map[string]string{"naics": "541512", "state": "TX"}))
	require.NoError(t, idx.Upsert(ctx, EntityCompanyProfile, "CO-1", []float32{0.9, 0.1, 0}, map[string]string{"state": "VA"}))

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 10, map[string]string{"state": "VA"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "OPP-1", results[0].EntityID)

	require.NoError(t, idx.Delete(ctx, EntityOpportunity, "OPP-1"))
	results, err = idx.Search(ctx, []float32{1, 0, 0}, 10, map[string]string{"state": "VA"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "CO-1", results[0].EntityID)
}
