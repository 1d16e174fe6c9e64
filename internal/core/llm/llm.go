// Package llm provides chat-completion clients used by the enrichment
// pipeline for summary and title generation.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion indicates the model returned no usable content.
var ErrEmptyCompletion = errors.New("llm returned empty completion")

// Task labels used in metrics.
const (
	TaskSummarize = "summarize"
	TaskTitle     = "title"
)

// Client defines the completion operations the pipeline needs.
type Client interface {
	// Summarize produces a summary of the text aimed at targetWords words.
	Summarize(ctx context.Context, text string, targetWords int, model string) (string, error)

	// GenerateTitle produces a short title for the given prompt text.
	GenerateTitle(ctx context.Context, prompt string) (string, error)
}
