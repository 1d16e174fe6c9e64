// Package chunker splits long text into overlapping, sentence-aligned
// segments bounded by a word budget. Chunks are never more granular than one
// sentence: a single sentence longer than the budget is emitted whole.
package chunker

import (
	"regexp"
	"strings"
)

// Defaults used by the enrichment pipeline.
const (
	DefaultMaxWords     = 1000
	DefaultOverlapWords = 50
)

// sentenceSplitter matches runs of text ending in a sentence terminator,
// including any closing quotes or brackets that follow it.
var sentenceSplitter = regexp.MustCompile(`[^.!?]+[.!?]+[)\]"'”’]*`)

// Chunker produces word-budgeted chunks from arbitrary text.
type Chunker struct {
	maxWords     int
	overlapWords int
}

// New creates a Chunker. Non-positive arguments fall back to the defaults.
func New(maxWords, overlapWords int) *Chunker {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	if overlapWords < 0 {
		overlapWords = DefaultOverlapWords
	}

	return &Chunker{maxWords: maxWords, overlapWords: overlapWords}
}

// Chunk splits text into ordered segments. Sentences are accumulated greedily
// until the next one would exceed the word budget; each new chunk is seeded
// with a trailing-sentence overlap window bounded by the overlap budget.
// Empty input yields nil.
func (c *Chunker) Chunk(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var (
		chunks           []string
		current          []string
		currentWords     int
		overlap          []string
		overlapWordCount int
	)

	for _, sentence := range sentences {
		words := wordCount(sentence)

		if currentWords+words > c.maxWords && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			current = append([]string(nil), overlap...)
			currentWords = 0

			for _, s := range current {
				currentWords += wordCount(s)
			}

			overlap = nil
			overlapWordCount = 0
		}

		current = append(current, sentence)
		currentWords += words

		overlap = append(overlap, sentence)
		overlapWordCount += words

		// Evict from the front until the overlap window fits the budget,
		// always keeping at least one sentence.
		for overlapWordCount > c.overlapWords && len(overlap) > 1 {
			overlapWordCount -= wordCount(overlap[0])
			overlap = overlap[1:]
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// SplitSentences splits text on sentence boundaries. Text without any
// terminator is returned as a single sentence.
func SplitSentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	matches := sentenceSplitter.FindAllString(trimmed, -1)
	if len(matches) == 0 {
		return []string{trimmed}
	}

	sentences := make([]string, 0, len(matches)+1)
	consumed := 0

	for _, m := range matches {
		consumed += len(m)

		if s := strings.TrimSpace(m); s != "" {
			sentences = append(sentences, s)
		}
	}

	// Trailing text without a terminator still belongs to the document.
	if rest := strings.TrimSpace(trimmed[consumed:]); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
