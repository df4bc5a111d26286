package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClean_CollapsesWhitespaceAndStripsFooters(t *testing.T) {
	in := "Hello   world\n\n\n\nPage 1 of 5\nConfidential - do not distribute\nBody text\n"
	got := Clean(in)
	require.Equal(t, "Hello world\n\nBody text", got)
}

func TestExtract_CSVPreviewTruncates(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id,name\n")
	for i := 0; i < 150; i++ {
		sb.WriteString("1,row\n")
	}
	res := Extract(context.Background(), []byte(sb.String()), "data.csv", nil)
	require.True(t, res.Success)
	require.Contains(t, res.FullText, "more rows")
}

func TestExtract_PlainTextRoundTrip(t *testing.T) {
	res := Extract(context.Background(), []byte("plain ascii text"), "notes.txt", nil)
	require.True(t, res.Success)
	require.Equal(t, "plain ascii text", res.FullText)
	require.Equal(t, "txt", res.Format)
}

func TestExtract_UnknownExtensionFallsBackToText(t *testing.T) {
	res := Extract(context.Background(), []byte("some content"), "file.xyz", nil)
	require.True(t, res.Success)
	require.Equal(t, "txt", res.Format)
}

type stubOCR struct{ text string }

func (s stubOCR) Recognize(_ context.Context, _ []byte, _ string) (string, error) {
	return s.text, nil
}

func TestExtract_ImageUsesOCR(t *testing.T) {
	res := Extract(context.Background(), []byte{0xFF, 0xD8, 0xFF}, "scan.jpg", stubOCR{text: "recognized text"})
	require.True(t, res.Success)
	require.Equal(t, "recognized text", res.FullText)
}
