// Package chunk splits cleaned document text into overlapping,
// word-bounded chunks for embedding, honoring sentence boundaries where
// possible.
package chunk

import (
	"regexp"
	"strings"
)

const (
	DefaultChunkWords   = 1000
	DefaultOverlapWords = 200
	minSentenceLen      = 10
)

var sentenceSplit = regexp.MustCompile(`[.!?]\s+`)

// Chunk is one output unit of a chunking pass.
type Chunk struct {
	Text          string `json:"text"`
	WordCount     int    `json:"wordCount"`
	SentenceCount int    `json:"sentenceCount"`
}

// Strategy is a chunking algorithm: semantic (sentence-aware, the default)
// or fixed (hard word boundaries).
type Strategy func(text string, chunkWords, overlapWords int) []Chunk

// Semantic splits text into sentences and packs them into chunks up to
// chunkWords, finalizing a chunk either when the next sentence would exceed
// the budget or at input end. Overlap is realized by carrying trailing
// sentences from the end of one chunk into the start of the next, up to
// overlapWords; when overlapWords is positive the final sentence is always
// carried, even if it alone exceeds overlapWords. Sentence fragments
// shorter than 10 characters are dropped.
func Semantic(text string, chunkWords, overlapWords int) []Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var (
		chunks  []Chunk
		current []string
		words   int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, buildChunk(current))
		current = carryOverlap(current, overlapWords)
		words = countWords(current)
	}

	for _, sent := range sentences {
		n := wordCount(sent)
		if words > 0 && words+n > chunkWords {
			flush()
		}
		current = append(current, sent)
		words += n
	}
	if len(current) > 0 {
		chunks = append(chunks, buildChunk(current))
	}
	return chunks
}

// Fixed packs raw words into hard-bounded chunks of chunkWords with
// overlapWords of trailing-word carryover, ignoring sentence boundaries.
func Fixed(text string, chunkWords, overlapWords int) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var chunks []Chunk
	step := chunkWords - overlapWords
	if step <= 0 {
		step = chunkWords
	}
	for start := 0; start < len(words); start += step {
		end := start + chunkWords
		if end > len(words) {
			end = len(words)
		}
		slice := words[start:end]
		chunks = append(chunks, Chunk{
			Text:          strings.Join(slice, " "),
			WordCount:     len(slice),
			SentenceCount: 1,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}

// Run runs strategy (defaulting to Semantic) with the given word budgets,
// falling back to DefaultChunkWords when chunkWords is zero or negative and
// to DefaultOverlapWords when overlapWords is negative; an overlapWords of
// zero means no overlap.
func Run(strategy Strategy, text string, chunkWords, overlapWords int) []Chunk {
	if chunkWords <= 0 {
		chunkWords = DefaultChunkWords
	}
	if overlapWords < 0 {
		overlapWords = DefaultOverlapWords
	}
	if strategy == nil {
		strategy = Semantic
	}
	return strategy(text, chunkWords, overlapWords)
}

func splitSentences(text string) []string {
	raw := sentenceSplit.Split(strings.TrimSpace(text), -1)
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(s) < minSentenceLen {
			continue
		}
		out = append(out, s)
	}
	return out
}

func buildChunk(sentences []string) Chunk {
	text := strings.Join(sentences, " ")
	return Chunk{
		Text:          text,
		WordCount:     wordCount(text),
		SentenceCount: len(sentences),
	}
}

func carryOverlap(sentences []string, overlapWords int) []string {
	if overlapWords <= 0 {
		return nil
	}
	var (
		carried []string
		words   int
	)
	for i := len(sentences) - 1; i >= 0; i-- {
		n := wordCount(sentences[i])
		if words+n > overlapWords && len(carried) > 0 {
			break
		}
		carried = append([]string{sentences[i]}, carried...)
		words += n
	}
	return carried
}

func wordCount(s string) int { return len(strings.Fields(s)) }

func countWords(sentences []string) int {
	total := 0
	for _, s := range sentences {
		total += wordCount(s)
	}
	return total
}
