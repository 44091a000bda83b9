package vectorstore

import "context"

// Point is one indexed document: a vector keyed by ID with its metadata
// payload. Upserting the same ID replaces the prior point.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

// Result is one similarity-search hit, score descending by contract.
type Result struct {
	ID      string
	Score   float64
	Payload map[string]interface{}
}

// Index abstracts the external vector database.
type Index interface {
	// EnsureCollection creates the collection if missing. Safe to call when
	// the collection already exists.
	EnsureCollection(ctx context.Context, dimension int) error
	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, points []Point) error
	// Search returns up to limit nearest neighbours of vector, best first.
	Search(ctx context.Context, vector []float32, limit int) ([]Result, error)
}
