package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mohammad-safakhou/newsrag/internal/retrieval"
	"github.com/mohammad-safakhou/newsrag/internal/vectorstore"
)

type fakeProvider struct {
	vec []float32
	err error
}

func (f *fakeProvider) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

type fakeIndex struct {
	results   []vectorstore.Result
	err       error
	lastLimit int
}

func (f *fakeIndex) EnsureCollection(ctx context.Context, dimension int) error { return nil }
func (f *fakeIndex) Upsert(ctx context.Context, points []vectorstore.Point) error {
	return nil
}
func (f *fakeIndex) Search(ctx context.Context, vector []float32, limit int) ([]vectorstore.Result, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func TestRetrieveMapsPayloads(t *testing.T) {
	index := &fakeIndex{results: []vectorstore.Result{
		{ID: "1", Score: 0.92, Payload: map[string]any{"title": "Alpha", "content": "alpha body", "url": "http://a", "published_at": "2026-01-02T00:00:00Z"}},
		{ID: "2", Score: 0.81, Payload: map[string]any{"title": "Beta", "content": "beta body", "url": "http://b"}},
	}}
	engine := retrieval.NewEngine(&fakeProvider{vec: []float32{0.1, 0.2}}, index, 5)

	passages, err := engine.Retrieve(context.Background(), "query")
	assert.NoError(t, err)
	assert.Len(t, passages, 2)
	assert.Equal(t, 5, index.lastLimit)
	assert.Equal(t, "Alpha", passages[0].Title)
	assert.Equal(t, "http://a", passages[0].URL)
	assert.Equal(t, "2026-01-02T00:00:00Z", passages[0].PublishedAt)
	assert.Equal(t, 0.92, passages[0].Score)
	// index returns score-descending and the order is preserved
	assert.GreaterOrEqual(t, passages[0].Score, passages[1].Score)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	engine := retrieval.NewEngine(&fakeProvider{vec: []float32{0.1}}, &fakeIndex{}, 5)

	passages, err := engine.Retrieve(context.Background(), "climate")
	assert.NoError(t, err)
	assert.Empty(t, passages)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	engine := retrieval.NewEngine(&fakeProvider{err: errors.New("quota exceeded")}, &fakeIndex{}, 5)

	_, err := engine.Retrieve(context.Background(), "query")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed query")
}

func TestRetrieveSearchFailure(t *testing.T) {
	engine := retrieval.NewEngine(&fakeProvider{vec: []float32{0.1}}, &fakeIndex{err: errors.New("connection refused")}, 5)

	_, err := engine.Retrieve(context.Background(), "query")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "vector search failed")
}
