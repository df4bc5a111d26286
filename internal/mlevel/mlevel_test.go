package mlevel

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tjaddison/govbiz-ai-sub002/internal/embedclient"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
)

type fakeEmbedder struct{ calls int }

func (f *fakeEmbedder) Embed(_ context.Context, text string, _ embedclient.Role) ([]float32, error) {
	f.calls++
	return []float32{float32(len(text))}, nil
}

type fakeSummarizer struct{ called bool }

func (f *fakeSummarizer) Summarize(_ context.Context, _ string) (string, error) {
	f.called = true
	return "a short summary of the long document covering its key points", nil
}

func testKeyer(level Level, name string) string {
	return fmt.Sprintf("docs/test/%s/%s.json", level, name)
}

func TestProcess_EmbedsAllLevels(t *testing.T) {
	embedder := &fakeEmbedder{}
	orch := &Orchestrator{
		Embedder: embedder,
		Objects:  objectstore.NewMemoryStore(),
		Now:      func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	text := "INTRODUCTION\n\nThis is the first paragraph with more than twenty words in it so that it clears the minimum paragraph word count threshold easily.\n\nSECOND SECTION\n\nThis is another paragraph with plenty of words so it also clears the twenty word minimum threshold for paragraphs to be considered."

	summary, err := orch.Process(context.Background(), text, testKeyer)
	require.NoError(t, err)
	require.Contains(t, summary.LevelsCreated, LevelFullDocument)
	require.Greater(t, summary.TotalEmbeddings, 0)
}

func TestProcess_SummarizesOverCeiling(t *testing.T) {
	embedder := &fakeEmbedder{}
	summarizer := &fakeSummarizer{}
	orch := &Orchestrator{
		Embedder:          embedder,
		Summarizer:        summarizer,
		Objects:           objectstore.NewMemoryStore(),
		TokenCeilingWords: 5,
		Now:               func() time.Time { return time.Now() },
	}

	text := strings.Repeat("word ", 50)
	_, err := orch.Process(context.Background(), text, testKeyer)
	require.NoError(t, err)
	require.True(t, summarizer.called)
}

func TestProcess_IdempotentSkipsExistingKeys(t *testing.T) {
	embedder := &fakeEmbedder{}
	objs := objectstore.NewMemoryStore()
	orch := &Orchestrator{Embedder: embedder, Objects: objs, Now: time.Now}

	text := "A short full document body that is still long enough for a paragraph check maybe."
	_, err := orch.Process(context.Background(), text, testKeyer)
	require.NoError(t, err)
	firstCalls := embedder.calls

	_, err = orch.Process(context.Background(), text, testKeyer)
	require.NoError(t, err)
	require.Equal(t, firstCalls, embedder.calls)
}

func TestSections_HeaderHeuristics(t *testing.T) {
	text := "INTRODUCTION\nThis body has more than ten words so it clears the section minimum threshold for inclusion.\nI. ROMAN HEADER\nAnother body with more than ten words here so it also clears the minimum threshold easily."
	secs := sections(text)
	require.Len(t, secs, 2)
	require.Equal(t, "INTRODUCTION", secs[0].name)
}

func TestParagraphs_TopTenByWordCount(t *testing.T) {
	var parts []string
	for i := 0; i < 15; i++ {
		parts = append(parts, strings.Repeat(fmt.Sprintf("word%d ", i), 21))
	}
	text := strings.Join(parts, "\n\n")
	paras := paragraphs(text)
	require.Len(t, paras, maxParagraphs)
}
