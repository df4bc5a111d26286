package csvingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tjaddison/govbiz-ai-sub002/internal/queue"
)

func TestParse_StrictCSV(t *testing.T) {
	raw := []byte("NoticeId,Title,Department/Ind.Agency\nN1,Cloud Support,DOD\nN2,Janitorial,GSA\n")
	result := Parse(raw)
	require.False(t, result.Robust)
	require.Len(t, result.Rows, 2)
	require.Equal(t, "N1", result.Rows[0][colNoticeID])
}

func TestParse_RobustFallbackOnMalformedQuotes(t *testing.T) {
	raw := []byte("NoticeId,Title\nN1,Unterminated \"quote\nN2,Fine\n")
	result := Parse(raw)
	require.NotEmpty(t, result.Rows)
}

func TestSplitNameAndPhone_EmbeddedNumber(t *testing.T) {
	name, phone := SplitNameAndPhone("Alex Bonner 717-604-4237", "")
	require.Equal(t, "Alex Bonner", name)
	require.Equal(t, "717-604-4237", phone)
}

func TestSplitNameAndPhone_PreservesExplicitPhone(t *testing.T) {
	name, phone := SplitNameAndPhone("Jordan Lee", "555-111-2222")
	require.Equal(t, "Jordan Lee", name)
	require.Equal(t, "555-111-2222", phone)
}

func TestTransform_DropsRowsWithoutNoticeID(t *testing.T) {
	_, ok := Transform(Row{"Title": "No ID here"})
	require.False(t, ok)
}

func TestTransform_ParsesCoreFields(t *testing.T) {
	row := Row{
		colNoticeID:   "N123",
		colTitle:      "Cloud Migration",
		colAgency:     "Department of Defense",
		colPostedDate: "2026-01-01",
		colNAICS:      "541512;541511",
		colAward:      "$1,200.50",
	}
	o, ok := Transform(row)
	require.True(t, ok)
	require.Equal(t, "N123", o.NoticeID)
	require.Equal(t, "541512", o.NAICSCode)
	require.Equal(t, 1200.50, o.Award.Amount)
}

type fakeProducer struct {
	sent [][]queue.Message
}

func (f *fakeProducer) Send(_ context.Context, _ string, msgs ...queue.Message) error {
	f.sent = append(f.sent, msgs)
	return nil
}
func (f *fakeProducer) Close() error { return nil }

type fakeDownloader struct{ body []byte }

func (f *fakeDownloader) Download(context.Context) ([]byte, error) { return f.body, nil }

func TestIngestor_RunEmitsBatchesAndDedupes(t *testing.T) {
	raw := []byte("NoticeId,Title\nN1,A\nN1,A\nN2,B\n")
	prod := &fakeProducer{}
	ig := &Ingestor{Downloader: &fakeDownloader{body: raw}, Producer: prod, Topic: "opportunity-rows"}

	stats, err := ig.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.DuplicateRows)
	require.Equal(t, 1, stats.EmittedBatches)
	require.Len(t, prod.sent, 1)
}

func TestIngestor_DeduplicatesByContentHash(t *testing.T) {
	rows := []Row{
		{colNoticeID: "N1", colTitle: "A"},
		{colNoticeID: "N1", colTitle: "A"}, // exact duplicate
		{colNoticeID: "N2", colTitle: "B"},
	}
	seen := make(map[string]struct{})
	var unique int
	for _, r := range rows {
		h := contentHash(r)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		unique++
	}
	require.Equal(t, 2, unique)
}
