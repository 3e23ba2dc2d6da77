package inference

import (
	"context"
)

//go:generate mockgen -source=interface.go -destination=../mocks/inference/mock_client.go -package=mock_inference

// Client interface defines the methods for AI inference operations
type Client interface {
	ExtractActionItems(ctx context.Context, params ExtractActionItemsRequest) (ExtractActionItemsResponse, error)
}

// ExtractActionItemsRequest holds the document to extract action items from
type ExtractActionItemsRequest struct {
	Text string `json:"text"`
}

// ExtractActionItemsResponse holds the raw items returned by the model, in reply order.
// Items are not trimmed or deduplicated.
type ExtractActionItemsResponse struct {
	ActionItems []string `json:"action_items"`
}
