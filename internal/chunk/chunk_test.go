package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSemantic_FinalizesOnBudget(t *testing.T) {
	sentence := strings.Repeat("word ", 50) + "sentence one."
	text := strings.Repeat(sentence+" ", 25)
	chunks := Run(Semantic, text, 200, 40)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		require.LessOrEqual(t, c.WordCount, 200+60)
	}
}

func TestSemantic_DropsShortFragments(t *testing.T) {
	chunks := Run(Semantic, "Hi. This is a real sentence with enough length.", 1000, 200)
	require.Len(t, chunks, 1)
	require.NotContains(t, chunks[0].Text, "Hi.")
}

func TestSemantic_EmptyInput(t *testing.T) {
	require.Empty(t, Run(Semantic, "", 1000, 200))
	require.Empty(t, Run(Semantic, "ok", 1000, 200))
}

func TestFixed_HardBoundariesWithOverlap(t *testing.T) {
	words := make([]string, 30)
	for i := range words {
		words[i] = "w"
	}
	text := strings.Join(words, " ")
	chunks := Run(Fixed, text, 10, 2)
	require.Greater(t, len(chunks), 1)
	require.Equal(t, 10, chunks[0].WordCount)
}
