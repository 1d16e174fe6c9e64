package vectorindex

import "context"

type noopIndex struct{}

// NewNoop returns an Index that discards all writes. Used when no vector
// store is configured.
func NewNoop() Index {
	return noopIndex{}
}

func (noopIndex) Upsert(context.Context, string, string, []float32, map[string]any) error {
	return nil
}

func (noopIndex) Close() error { return nil }
