package enrichment

import (
	"context"
	"strings"

	"github.com/researchhub/research-hub/internal/core/domain"
	"github.com/researchhub/research-hub/internal/core/vectorindex"
	"github.com/researchhub/research-hub/internal/platform/observability"
)

const (
	// Texts below this word count get no summaries at all.
	minSummarizableWords = 200

	lightSummaryModel  = "gpt-3.5-turbo"
	strongSummaryModel = "gpt-4"
)

// summaryBucket pairs a length bucket with its target word count and the
// minimum source length that earns it.
type summaryBucket struct {
	length      domain.SummaryLength
	targetWords int
	minWords    int
}

// Buckets are cumulative: a source long enough for verylong gets all five.
var summaryBuckets = []summaryBucket{
	{domain.SummaryVeryShort, 100, minSummarizableWords},
	{domain.SummaryShort, 250, 1000},
	{domain.SummaryMedium, 500, 2000},
	{domain.SummaryLong, 1000, 3000},
	{domain.SummaryVeryLong, 2000, 4000},
}

// summaryPlan returns the buckets a text of the given word count earns.
func summaryPlan(wordCount int) []summaryBucket {
	plan := []summaryBucket{}

	for _, bucket := range summaryBuckets {
		if wordCount >= bucket.minWords {
			plan = append(plan, bucket)
		}
	}

	return plan
}

// summaryModel picks a lighter model for short targets and a stronger one
// from medium up.
func summaryModel(length domain.SummaryLength) string {
	switch length {
	case domain.SummaryVeryShort, domain.SummaryShort:
		return lightSummaryModel
	default:
		return strongSummaryModel
	}
}

// createSummaries produces the word-budgeted summaries for the report and
// the prompt independently, persists each, and indexes its embedding.
func (o *Orchestrator) createSummaries(ctx context.Context, item *domain.Item) error {
	scopes := []struct {
		scope domain.SummaryScope
		text  string
	}{
		{domain.SummaryScopeReport, item.FinalReport},
		{domain.SummaryScopePrompt, item.PromptText},
	}

	for _, sc := range scopes {
		if err := o.summarizeScope(ctx, item, sc.scope, sc.text); err != nil {
			return err
		}
	}

	return nil
}

func (o *Orchestrator) summarizeScope(ctx context.Context, item *domain.Item, scope domain.SummaryScope, text string) error {
	words := strings.Fields(text)

	for _, bucket := range summaryPlan(len(words)) {
		summaryText := o.generateSummary(ctx, text, words, bucket)

		summary := domain.Summary{
			ItemID: item.ID,
			Scope:  scope,
			Length: bucket.length,
			Text:   summaryText,
		}

		if err := o.repo.UpsertSummary(ctx, summary); err != nil {
			observability.SummariesGenerated.WithLabelValues(string(scope), string(bucket.length), "error").Inc()

			return err
		}

		observability.SummariesGenerated.WithLabelValues(string(scope), string(bucket.length), "success").Inc()

		vec := o.embedder.Embed(ctx, summaryText)

		key := vectorindex.SummaryKey(item.ID, string(scope), string(bucket.length))
		payload := map[string]any{
			"item_id":       item.ID,
			"artifact_type": "summary",
			"scope":         string(scope),
			"length":        string(bucket.length),
			"preview":       preview(summaryText),
		}

		if err := o.index.Upsert(ctx, "summary", key, vec, payload); err != nil {
			o.logger.Warn().Err(err).Str(logKeyItemID, item.ID).Str("length", string(bucket.length)).Msg("vector index upsert failed")
		}
	}

	return nil
}

// generateSummary asks the LLM for a summary and falls back to a verbatim
// word-prefix truncation on failure. Summarization never fails the task.
func (o *Orchestrator) generateSummary(ctx context.Context, text string, words []string, bucket summaryBucket) string {
	summary, err := o.llm.Summarize(ctx, text, bucket.targetWords, summaryModel(bucket.length))
	if err == nil && summary != "" {
		return summary
	}

	if err != nil {
		o.logger.Warn().Err(err).Str("length", string(bucket.length)).Msg("summary generation failed, using truncation fallback")
	}

	if len(words) <= bucket.targetWords {
		return strings.Join(words, " ")
	}

	return strings.Join(words[:bucket.targetWords], " ")
}
