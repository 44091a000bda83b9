package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammad-safakhou/newsrag/internal/vectorstore"
)

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/news":
			if created {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case r.Method == http.MethodPut && r.URL.Path == "/collections/news":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			vectors := body["vectors"].(map[string]any)
			if vectors["distance"] != "Cosine" {
				t.Errorf("expected cosine distance, got %v", vectors["distance"])
			}
			if vectors["size"].(float64) != 4 {
				t.Errorf("expected dimension 4, got %v", vectors["size"])
			}
			created = true
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	index := New(Config{URL: srv.URL, Collection: "news"})
	if err := index.EnsureCollection(context.Background(), 4); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if !created {
		t.Fatalf("collection was not created")
	}
	// second call is a no-op against the existing collection
	if err := index.EnsureCollection(context.Background(), 4); err != nil {
		t.Fatalf("EnsureCollection on existing: %v", err)
	}
}

func TestUpsertAndSearch(t *testing.T) {
	var upserted []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/news/points":
			var body struct {
				Points []map[string]any `json:"points"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			upserted = body.Points
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/collections/news/points/search":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["with_payload"] != true {
				t.Errorf("expected with_payload=true")
			}
			if body["limit"].(float64) != 3 {
				t.Errorf("expected limit 3, got %v", body["limit"])
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":[
				{"id":"p1","score":0.93,"payload":{"title":"Alpha","url":"http://a"}},
				{"id":"p2","score":0.71,"payload":{"title":"Beta","url":"http://b"}}
			]}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	index := New(Config{URL: srv.URL, Collection: "news"})

	err := index.Upsert(context.Background(), []vectorstore.Point{
		{ID: "p1", Vector: []float32{1, 0}, Payload: map[string]any{"title": "Alpha"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if len(upserted) != 1 || upserted[0]["id"] != "p1" {
		t.Fatalf("unexpected upsert body: %+v", upserted)
	}

	results, err := index.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "p1" || results[0].Score != 0.93 {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[0].Score < results[1].Score {
		t.Fatalf("results not score-descending")
	}
	if results[1].Payload["title"] != "Beta" {
		t.Fatalf("payload lost in mapping: %+v", results[1].Payload)
	}
}

func TestSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	index := New(Config{URL: srv.URL, Collection: "news"})
	if _, err := index.Search(context.Background(), []float32{1}, 3); err == nil {
		t.Fatalf("expected error on non-2xx search response")
	}
}
