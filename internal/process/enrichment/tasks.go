package enrichment

import (
	"context"
	"fmt"

	"github.com/researchhub/research-hub/internal/core/domain"
	"github.com/researchhub/research-hub/internal/core/vectorindex"
)

const previewLength = 200

// chunkPrompt chunks the item's prompt, persists the chunk rows, and
// indexes an embedding per chunk.
func (o *Orchestrator) chunkPrompt(ctx context.Context, item *domain.Item) error {
	return o.chunkAndIndex(ctx, item, item.PromptText, domain.ChunkTypePrompt)
}

// chunkReport does the same over the report text.
func (o *Orchestrator) chunkReport(ctx context.Context, item *domain.Item) error {
	return o.chunkAndIndex(ctx, item, item.FinalReport, domain.ChunkTypeReport)
}

func (o *Orchestrator) chunkAndIndex(ctx context.Context, item *domain.Item, text string, chunkType domain.ChunkType) error {
	chunks := o.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil
	}

	if err := o.repo.ReplaceChunks(ctx, item.ID, chunkType, chunks); err != nil {
		return err
	}

	for i, chunk := range chunks {
		vec := o.embedder.Embed(ctx, chunk)

		key := vectorindex.ChunkKey(item.ID, string(chunkType), i)
		payload := map[string]any{
			"item_id":       item.ID,
			"artifact_type": "chunk",
			"chunk_type":    string(chunkType),
			"chunk_index":   i,
			"preview":       preview(chunk),
		}

		// The relational copy is authoritative; index failures only degrade
		// retrieval.
		if err := o.index.Upsert(ctx, "chunk", key, vec, payload); err != nil {
			o.logger.Warn().Err(err).Str(logKeyItemID, item.ID).Int("chunk_index", i).Msg("vector index upsert failed")
		}
	}

	return nil
}

// documentEmbeddings embeds the full prompt and report and stores them on
// the item row, refreshing the full-text search vectors alongside.
func (o *Orchestrator) documentEmbeddings(ctx context.Context, item *domain.Item) error {
	promptVec := o.embedder.Embed(ctx, item.PromptText)
	reportVec := o.embedder.Embed(ctx, item.FinalReport)

	if err := o.repo.UpdateItemEmbeddings(ctx, item.ID, promptVec, reportVec); err != nil {
		return err
	}

	o.upsertDocumentVector(ctx, item, string(domain.SummaryScopePrompt), item.PromptText, promptVec)
	o.upsertDocumentVector(ctx, item, string(domain.SummaryScopeReport), item.FinalReport, reportVec)

	return nil
}

func (o *Orchestrator) upsertDocumentVector(ctx context.Context, item *domain.Item, scope, text string, vec []float32) {
	key := vectorindex.DocumentKey(item.ID, scope)
	payload := map[string]any{
		"item_id":       item.ID,
		"artifact_type": "document",
		"scope":         scope,
		"preview":       preview(text),
	}

	if err := o.index.Upsert(ctx, "document", key, vec, payload); err != nil {
		o.logger.Warn().Err(err).Str(logKeyItemID, item.ID).Str("scope", scope).Msg("vector index upsert failed")
	}
}

// domainCooccurrences counts each unordered pair of distinct source domains
// once per item. The processed marker in the store makes re-runs no-ops.
func (o *Orchestrator) domainCooccurrences(ctx context.Context, item *domain.Item) error {
	sources, err := o.repo.GetItemSources(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	domains := map[string]bool{}

	for _, src := range sources {
		if src.Domain != "" {
			domains[src.Domain] = true
		}
	}

	pairs := distinctPairs(domains)

	counted, err := o.repo.IncrementDomainPairs(ctx, item.ID, pairs)
	if err != nil {
		return err
	}

	if !counted {
		o.logger.Debug().Str(logKeyItemID, item.ID).Msg("domain pairs already counted for item")
	}

	return nil
}

// distinctPairs enumerates every unordered pair of distinct domains in
// canonical order. Deduplication happens via the set input, so a domain
// appearing on multiple sources contributes each pair once.
func distinctPairs(domains map[string]bool) []domain.DomainPair {
	list := make([]string, 0, len(domains))
	for d := range domains {
		list = append(list, d)
	}

	pairs := []domain.DomainPair{}

	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			pairs = append(pairs, domain.NewDomainPair(list[i], list[j]))
		}
	}

	return pairs
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}

	return string(runes[:previewLength])
}
