package vectorindex

import (
	"fmt"

	"github.com/google/uuid"
)

// Vector point ids are derived from logical keys so that re-running
// enrichment overwrites existing points instead of duplicating them.
var pointNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// PointID returns a deterministic UUID for a logical key.
func PointID(key string) string {
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

// ChunkKey is the logical key for an individual chunk vector.
func ChunkKey(itemID string, chunkType string, index int) string {
	return fmt.Sprintf("%s_chunk_%s_%d", chunkType, itemID, index)
}

// SummaryKey is the logical key for a summary vector.
func SummaryKey(itemID string, scope string, length string) string {
	return fmt.Sprintf("summary_%s_%s_%s", itemID, scope, length)
}

// DocumentKey is the logical key for a whole-document vector.
func DocumentKey(itemID string, scope string) string {
	return fmt.Sprintf("document_%s_%s", itemID, scope)
}
