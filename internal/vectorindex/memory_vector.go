package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

type memoryEntry struct {
	entityType string
	entityID   string
	vector     []float32
	filters    map[string]string
}

type memoryIndex struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]memoryEntry
}

// NewMemoryIndex returns an in-process Index for tests, backed by brute-force
// cosine similarity.
func NewMemoryIndex(dimension int) Index {
	return &memoryIndex{dim: dimension, entries: make(map[string]memoryEntry)}
}

func (m *memoryIndex) Upsert(_ context.Context, entityType, entityID string, vector []float32, filters map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]float32, len(vector))
	copy(cp, vector)
	m.entries[compositeID(entityType, entityID)] = memoryEntry{
		entityType: entityType,
		entityID:   entityID,
		vector:     cp,
		filters:    copyFilters(filters),
	}
	return nil
}

func (m *memoryIndex) Delete(_ context.Context, entityType, entityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, compositeID(entityType, entityID))
	return nil
}

func (m *memoryIndex) Search(_ context.Context, vector []float32, k int, filter map[string]string) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 {
		k = 10
	}
	qnorm := norm(vector)
	out := make([]SearchResult, 0, len(m.entries))
	for _, e := range m.entries {
		if !matchesFilter(e.filters, filter) {
			continue
		}
		out = append(out, SearchResult{
			EntityType: e.entityType,
			EntityID:   e.entityID,
			Score:      cosine(vector, e.vector, qnorm),
			Filters:    copyFilters(e.filters),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *memoryIndex) Dimension() int { return m.dim }

func (m *memoryIndex) Close() error { return nil }

func matchesFilter(md, f map[string]string) bool {
	if len(f) == 0 {
		return true
	}
	for k, v := range f {
		if md[k] != v {
			return false
		}
	}
	return true
}

func copyFilters(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func norm(a []float32) float64 {
	var s float64
	for _, x := range a {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func cosine(a, b []float32, anorm float64) float64 {
	if anorm == 0 {
		anorm = norm(a)
	}
	bnorm := norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	return dot(a, b) / (anorm * bnorm)
}
