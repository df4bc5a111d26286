package embedclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tjaddison/govbiz-ai-sub002/internal/config"
)

func testConfig(endpoint string) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		Endpoint:   endpoint,
		Timeout:    5 * time.Second,
		Dimensions: 1024,
	}
}

func unitVector(n int) []float32 {
	v := make([]float32, n)
	v[0] = 1.0
	return v
}

func TestEmbed_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, 1024, req.Dimensions)
		require.True(t, req.Normalize)
		require.Equal(t, "search_document", req.Role)
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: unitVector(1024)})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	vec, err := c.Embed(context.Background(), "hello world", RoleSearchDocument)
	require.NoError(t, err)
	require.Len(t, vec, 1024)
}

func TestEmbed_EmptyText(t *testing.T) {
	c := New(testConfig("http://unused"))
	_, err := c.Embed(context.Background(), "   ", RoleSearchQuery)
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestEmbed_TruncatesLongText(t *testing.T) {
	words := make([]string, TokenCeilingWords+500)
	for i := range words {
		words[i] = "w"
	}
	longText := strings.Join(words, " ")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.LessOrEqual(t, len(strings.Fields(req.InputText)), TokenCeilingWords)
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: unitVector(1024)})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Embed(context.Background(), longText, RoleSearchDocument)
	require.NoError(t, err)
}

func TestEmbed_PermanentErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Embed(context.Background(), "hello", RoleSearchQuery)
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
