// Package mlevel implements the Multi-Level Embedding Strategy: for one
// cleaned document, it produces a full-document embedding, section
// embeddings, chunk embeddings, and key-paragraph embeddings, each written
// to a deterministic, idempotency-checked object-store key.
package mlevel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/chunk"
	"github.com/tjaddison/govbiz-ai-sub002/internal/embedclient"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
)

// Level names one of the four embedding strata.
type Level string

const (
	LevelFullDocument Level = "full_document"
	LevelSection      Level = "sections"
	LevelChunk        Level = "chunks"
	LevelParagraph    Level = "paragraphs"
)

const (
	minSectionBodyWords = 10
	maxSectionHeaderLen = 100
	minParagraphWords   = 20
	maxParagraphs       = 10
)

var sectionHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z][^a-z]*$`),
	regexp.MustCompile(`^[IVXLCDM]+\.`),
	regexp.MustCompile(`^\d+\.`),
}

// Embedder embeds one string of text.
type Embedder interface {
	Embed(ctx context.Context, text string, role embedclient.Role) ([]float32, error)
}

// Summarizer condenses a document too large to embed whole.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// KeyFunc builds the deterministic object-store key for one embedded item,
// letting the caller (opportunity attachments vs. profile documents) scope
// keys to its own namespace.
type KeyFunc func(level Level, name string) string

// Summary is the aggregated result returned to the caller after embedding
// every level.
type Summary struct {
	TotalEmbeddings       int            `json:"totalEmbeddings"`
	LevelsCreated         []Level        `json:"levelsCreated"`
	EmbeddingDistribution map[Level]int  `json:"embeddingDistribution"`
	Keys                  map[Level][]string `json:"keys"`
}

// Record is the persisted shape of one embedded item.
type Record struct {
	Level       Level     `json:"level"`
	Name        string    `json:"name"`
	Vector      []float32 `json:"vector"`
	TextPreview string    `json:"textPreview"`
	WordCount   int       `json:"wordCount"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Orchestrator runs the four-level embedding strategy over one document.
type Orchestrator struct {
	Embedder   Embedder
	Summarizer Summarizer
	Objects    objectstore.ObjectStore
	Now        func() time.Time

	// TokenCeilingWords bounds the full_document level: text longer than
	// this is summarized before being embedded, rather than embedded whole.
	TokenCeilingWords int
}

// Process embeds every level of text and returns the aggregated Summary.
func (o *Orchestrator) Process(ctx context.Context, text string, keyer KeyFunc) (Summary, error) {
	summary := Summary{
		EmbeddingDistribution: map[Level]int{},
		Keys:                  map[Level][]string{},
	}

	if err := o.embedFullDocument(ctx, text, keyer, &summary); err != nil {
		return summary, fmt.Errorf("mlevel: full_document: %w", err)
	}
	if err := o.embedItems(ctx, LevelSection, sections(text), keyer, &summary); err != nil {
		return summary, fmt.Errorf("mlevel: sections: %w", err)
	}
	if err := o.embedItems(ctx, LevelChunk, chunkItems(text), keyer, &summary); err != nil {
		return summary, fmt.Errorf("mlevel: chunks: %w", err)
	}
	if err := o.embedItems(ctx, LevelParagraph, paragraphs(text), keyer, &summary); err != nil {
		return summary, fmt.Errorf("mlevel: paragraphs: %w", err)
	}

	return summary, nil
}

func (o *Orchestrator) embedFullDocument(ctx context.Context, text string, keyer KeyFunc, summary *Summary) error {
	ceiling := o.TokenCeilingWords
	if ceiling <= 0 {
		ceiling = embedclient.TokenCeilingWords
	}

	body := text
	if wordCount(text) > ceiling && o.Summarizer != nil {
		s, err := o.Summarizer.Summarize(ctx, text)
		if err != nil {
			return fmt.Errorf("summarize: %w", err)
		}
		body = s
	}
	return o.embedItems(ctx, LevelFullDocument, []namedText{{name: "full_document", text: body}}, keyer, summary)
}

type namedText struct {
	name string
	text string
}

func (o *Orchestrator) embedItems(ctx context.Context, level Level, items []namedText, keyer KeyFunc, summary *Summary) error {
	if len(items) == 0 {
		return nil
	}
	created := false
	for _, item := range items {
		if strings.TrimSpace(item.text) == "" {
			continue
		}
		key := keyer(level, item.name)
		exists, err := o.Objects.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("check key %s: %w", key, err)
		}
		if !exists {
			vector, err := o.Embedder.Embed(ctx, item.text, embedclient.RoleSearchDocument)
			if err != nil {
				return fmt.Errorf("embed %s: %w", key, err)
			}
			if err := o.writeRecord(ctx, key, level, item, vector); err != nil {
				return err
			}
		}
		summary.TotalEmbeddings++
		summary.EmbeddingDistribution[level]++
		summary.Keys[level] = append(summary.Keys[level], key)
		created = true
	}
	if created {
		summary.LevelsCreated = append(summary.LevelsCreated, level)
	}
	return nil
}

func (o *Orchestrator) writeRecord(ctx context.Context, key string, level Level, item namedText, vector []float32) error {
	preview := item.text
	if len(preview) > 200 {
		preview = preview[:200]
	}
	rec := Record{
		Level:       level,
		Name:        item.name,
		Vector:      vector,
		TextPreview: preview,
		WordCount:   wordCount(item.text),
		GeneratedAt: o.now(),
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}
	if _, err := o.Objects.Put(ctx, key, bytes.NewReader(body), objectstore.PutOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("put record %s: %w", key, err)
	}
	return nil
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// sections splits text into header-delimited sections using the header
// heuristics: a line is a header if it matches one of the all-caps,
// roman-numeral, or numbered-list patterns and is under the max length.
func sections(text string) []namedText {
	lines := strings.Split(text, "\n")
	var out []namedText
	var currentHeader string
	var currentBody []string

	flush := func() {
		body := strings.TrimSpace(strings.Join(currentBody, "\n"))
		if currentHeader != "" && wordCount(body) >= minSectionBodyWords {
			out = append(out, namedText{name: currentHeader, text: body})
		}
		currentBody = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isSectionHeader(trimmed) {
			flush()
			currentHeader = trimmed
			continue
		}
		currentBody = append(currentBody, line)
	}
	flush()
	return out
}

func isSectionHeader(line string) bool {
	if line == "" || len(line) >= maxSectionHeaderLen {
		return false
	}
	for _, p := range sectionHeaderPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func chunkItems(text string) []namedText {
	chunks := chunk.Run(chunk.Semantic, text, chunk.DefaultChunkWords, chunk.DefaultOverlapWords)
	out := make([]namedText, len(chunks))
	for i, c := range chunks {
		out[i] = namedText{name: fmt.Sprintf("chunk_%d", i), text: c.Text}
	}
	return out
}

// paragraphs splits on blank lines, keeps paragraphs with >=20 words, and
// returns only the top 10 by word count.
func paragraphs(text string) []namedText {
	raw := strings.Split(text, "\n\n")
	type candidate struct {
		item  namedText
		words int
	}
	var candidates []candidate
	for _, p := range raw {
		trimmed := strings.TrimSpace(p)
		words := wordCount(trimmed)
		if words < minParagraphWords {
			continue
		}
		candidates = append(candidates, candidate{item: namedText{text: trimmed}, words: words})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].words > candidates[j].words })
	if len(candidates) > maxParagraphs {
		candidates = candidates[:maxParagraphs]
	}
	out := make([]namedText, len(candidates))
	for i, c := range candidates {
		out[i] = namedText{name: fmt.Sprintf("paragraph_%d", i), text: c.item.text}
	}
	return out
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
