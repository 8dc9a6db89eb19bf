package qdrant

import (
	"context"
	"fmt"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

// FeedbackIndex is the similarity-indexed feedback store, a persistent
// collection in contrast with the single-use overflow collections.
type FeedbackIndex struct {
	client     *Client
	collection string
}

func NewFeedbackIndex(client *Client, collection string) *FeedbackIndex {
	return &FeedbackIndex{client: client, collection: collection}
}

func (f *FeedbackIndex) IndexFeedback(ctx context.Context, entry domain.FeedbackEntry) error {
	if err := f.client.EnsureCollection(ctx, f.collection); err != nil {
		return fmt.Errorf("ensure feedback collection: %w", err)
	}
	if err := f.client.UpsertTexts(ctx, f.collection, []string{entry.Text}); err != nil {
		return fmt.Errorf("index feedback entry: %w", err)
	}
	return nil
}

func (f *FeedbackIndex) SearchFeedback(ctx context.Context, queryText string, topK int) ([]string, error) {
	exists, err := f.client.HasCollection(ctx, f.collection)
	if err != nil {
		return nil, fmt.Errorf("probe feedback collection: %w", err)
	}
	if !exists {
		return nil, nil
	}

	results, err := f.client.QueryTexts(ctx, f.collection, []string{queryText}, topK)
	if err != nil {
		return nil, fmt.Errorf("search feedback: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}
