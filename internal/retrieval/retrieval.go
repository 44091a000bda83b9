package retrieval

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/newsrag/internal/vectorstore"
	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/provider"
)

// Engine turns a query into the top-K most relevant passages by embedding it
// and running a cosine search against the vector index.
type Engine struct {
	provider provider.Provider
	index    vectorstore.Index
	topK     int
}

func NewEngine(p provider.Provider, index vectorstore.Index, topK int) *Engine {
	if topK <= 0 {
		topK = 5
	}
	return &Engine{provider: p, index: index, topK: topK}
}

// Retrieve returns at most K passages sorted by descending score. An empty
// index yields an empty slice, not an error; embedding or search failures
// propagate to the caller.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]models.RetrievedPassage, error) {
	vecs, err := e.provider.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}

	results, err := e.index.Search(ctx, vecs[0], e.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	passages := make([]models.RetrievedPassage, 0, len(results))
	for _, r := range results {
		passages = append(passages, models.RetrievedPassage{
			Score:       r.Score,
			Title:       payloadString(r.Payload, "title"),
			Content:     payloadString(r.Payload, "content"),
			URL:         payloadString(r.Payload, "url"),
			PublishedAt: payloadString(r.Payload, "published_at"),
		})
	}
	return passages, nil
}

func payloadString(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
