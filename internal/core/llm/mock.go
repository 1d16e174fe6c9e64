package llm

import (
	"context"
	"strings"
)

type mockClient struct{}

// NewMock creates a deterministic client for local development and tests.
// Summaries are word-prefix truncations and titles are prompt prefixes.
func NewMock() Client {
	return &mockClient{}
}

func (m *mockClient) Summarize(_ context.Context, text string, targetWords int, _ string) (string, error) {
	words := strings.Fields(text)
	if len(words) <= targetWords {
		return text, nil
	}

	return strings.Join(words[:targetWords], " "), nil
}

func (m *mockClient) GenerateTitle(_ context.Context, prompt string) (string, error) {
	const maxLen = 255

	title := strings.TrimSpace(prompt)
	if idx := strings.IndexAny(title, "\n"); idx > 0 {
		title = title[:idx]
	}

	if len(title) > maxLen {
		title = title[:maxLen]
	}

	return title, nil
}
