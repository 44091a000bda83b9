package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newsrag",
		Name:      "queries_total",
		Help:      "Chat queries processed, labelled by outcome.",
	}, []string{"outcome"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "newsrag",
		Name:      "query_duration_seconds",
		Help:      "End-to-end latency of the chat query pipeline.",
		Buckets:   prometheus.DefBuckets,
	})

	ingestedArticles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "newsrag",
		Name:      "ingested_articles_total",
		Help:      "Articles upserted into the vector index.",
	})
)
