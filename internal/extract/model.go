package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/at-ishikawa/actionnotes/internal/inference"
	"github.com/at-ishikawa/actionnotes/internal/metrics"
)

// ModelExtractor extracts action items with a language model.
type ModelExtractor struct {
	client  inference.Client
	metrics *metrics.Metrics
}

// NewModelExtractor creates a ModelExtractor. m may be nil.
func NewModelExtractor(client inference.Client, m *metrics.Metrics) *ModelExtractor {
	return &ModelExtractor{
		client:  client,
		metrics: m,
	}
}

// Extract returns the distinct action items the model finds in text.
// Any failure is logged and yields an empty result, so callers cannot tell
// "nothing found" apart from "the model call failed".
func (e *ModelExtractor) Extract(ctx context.Context, text string) []string {
	items, err := e.ExtractWithReason(ctx, text)
	if err != nil {
		slog.Default().WarnContext(ctx, "model extraction failed, returning no action items",
			"error", err,
		)
		e.metrics.RecordModelFailure()
		return []string{}
	}
	return items
}

// ExtractWithReason is Extract with the failure reason exposed.
// Empty or whitespace-only text returns no items without calling the model.
func (e *ModelExtractor) ExtractWithReason(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, nil
	}

	response, err := e.client.ExtractActionItems(ctx, inference.ExtractActionItemsRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("client.ExtractActionItems > %w", err)
	}

	items := Dedupe(response.ActionItems)
	slog.Default().DebugContext(ctx, "model extraction finished",
		"received", len(response.ActionItems),
		"kept", len(items),
	)
	return items, nil
}
