package ingest

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/google/uuid"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/internal/vectorstore"
	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/news/newsapi"
	"github.com/mohammad-safakhou/newsrag/provider"
)

// Ingestor loads the article corpus into the vector index. Point IDs are
// derived from the article URL, so re-running ingestion upserts rather than
// duplicates.
type Ingestor struct {
	provider provider.Provider
	index    vectorstore.Index
	feed     *newsapi.NewsAPI
	query    string
	urls     []string
	client   *http.Client
	logger   *log.Logger
}

func NewIngestor(cfg config.IngestConfig, p provider.Provider, index vectorstore.Index) *Ingestor {
	ing := &Ingestor{
		provider: p,
		index:    index,
		urls:     cfg.URLs,
		client:   &http.Client{Timeout: 20 * time.Second},
		logger:   log.New(log.Writer(), "[INGEST] ", log.LstdFlags),
	}
	if cfg.NewsAPI.APIKey != "" {
		ing.feed = &newsapi.NewsAPI{
			APIKey:     cfg.NewsAPI.APIKey,
			Endpoint:   cfg.NewsAPI.Endpoint,
			MaxResults: cfg.NewsAPI.MaxResults,
			HTTPClient: ing.client,
		}
		ing.query = cfg.NewsAPI.Query
	}
	return ing
}

// Run fetches all configured sources, embeds them and upserts the points.
// A single source's failure is logged and skipped, never fatal to the batch.
// Returns the number of articles ingested.
func (i *Ingestor) Run(ctx context.Context) (int, error) {
	articles := i.collect(ctx)
	if len(articles) == 0 {
		i.logger.Printf("no articles to ingest")
		return 0, nil
	}

	texts := make([]string, len(articles))
	for idx, a := range articles {
		texts[idx] = a.Title + "\n\n" + a.Content
	}

	vecs, err := i.provider.CreateEmbedding(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed articles: %w", err)
	}
	if len(vecs) != len(articles) {
		return 0, fmt.Errorf("expected %d embeddings, got %d", len(articles), len(vecs))
	}

	points := make([]vectorstore.Point, len(articles))
	for idx, a := range articles {
		points[idx] = vectorstore.Point{
			ID:     a.ID,
			Vector: vecs[idx],
			Payload: map[string]interface{}{
				"title":        a.Title,
				"content":      a.Content,
				"url":          a.URL,
				"published_at": a.PublishedAt.Format(time.RFC3339),
				"source":       a.Source,
			},
		}
	}

	if err := i.index.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("failed to upsert points: %w", err)
	}

	i.logger.Printf("ingested %d articles", len(points))
	return len(points), nil
}

func (i *Ingestor) collect(ctx context.Context) []models.Article {
	var articles []models.Article

	if i.feed != nil {
		feedArticles, err := i.feed.FetchNews(ctx, i.query)
		if err != nil {
			i.logger.Printf("newsapi fetch failed: %v", err)
		} else {
			for _, fa := range feedArticles {
				content := fa.Content
				if content == "" {
					content = fa.Description
				}
				if content == "" {
					continue
				}
				articles = append(articles, models.Article{
					ID:          ArticleID(fa.URL),
					Title:       fa.Title,
					Content:     content,
					URL:         fa.URL,
					PublishedAt: fa.PublishedAt,
					Source:      fa.Source.Name,
				})
			}
		}
	}

	for _, rawURL := range i.urls {
		article, err := i.fetchPage(ctx, rawURL)
		if err != nil {
			i.logger.Printf("skipping %s: %v", rawURL, err)
			continue
		}
		articles = append(articles, article)
	}

	return articles
}

// fetchPage pulls one article page and extracts readable content.
func (i *Ingestor) fetchPage(ctx context.Context, rawURL string) (models.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return models.Article{}, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return models.Article{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Article{}, fmt.Errorf("fetch returned %s", resp.Status)
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return models.Article{}, fmt.Errorf("invalid url: %w", err)
	}
	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return models.Article{}, fmt.Errorf("readability failed: %w", err)
	}
	content := strings.TrimSpace(article.TextContent)
	if content == "" {
		return models.Article{}, fmt.Errorf("no readable content")
	}
	published := time.Now()
	if article.PublishedTime != nil {
		published = *article.PublishedTime
	}
	return models.Article{
		ID:          ArticleID(rawURL),
		Title:       article.Title,
		Content:     content,
		URL:         rawURL,
		PublishedAt: published,
		Source:      article.SiteName,
	}, nil
}

// ArticleID derives a stable UUID from the article URL. Qdrant accepts UUID
// point IDs, and the same URL always maps to the same point.
func ArticleID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}
