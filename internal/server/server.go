package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/internal/chat"
	"github.com/mohammad-safakhou/newsrag/internal/ingest"
	"github.com/mohammad-safakhou/newsrag/internal/prompt"
	"github.com/mohammad-safakhou/newsrag/internal/retrieval"
	redis_session "github.com/mohammad-safakhou/newsrag/internal/session/redis"
	"github.com/mohammad-safakhou/newsrag/internal/vectorstore/qdrant"
	"github.com/mohammad-safakhou/newsrag/provider"
)

// Run wires the shared dependencies once, registers the REST and websocket
// surfaces and serves until SIGINT/SIGTERM.
func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().UnixMilli()})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Shared dependencies, created once and reused across all pipelines.
	ctx := context.Background()
	rdb, err := redis_session.Conn(ctx, cfg.Storage.Redis.Host, cfg.Storage.Redis.Port,
		cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.Redis.Timeout)
	if err != nil {
		return fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
	}
	store := redis_session.NewStore(rdb, cfg.Storage.Redis.SessionTTL)

	llm, err := provider.NewProvider(cfg.Provider)
	if err != nil {
		return err
	}

	index := qdrant.New(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Timeout:    cfg.Qdrant.Timeout,
	})
	if err := index.EnsureCollection(ctx, cfg.Qdrant.Dimension); err != nil {
		return fmt.Errorf("ensuring qdrant collection: %w", err)
	}

	engine := retrieval.NewEngine(llm, index, cfg.Chat.TopK)
	assembler := prompt.NewAssembler(cfg.Chat.HistoryTurns)
	orch := chat.NewOrchestrator(store, engine, assembler, llm, cfg.General.DefaultTimeout)

	ingestor := ingest.NewIngestor(cfg.Ingest, llm, index)
	sched := &ingest.Scheduler{
		Ingestor:  ingestor,
		CronSpec:  cfg.Ingest.RefreshCron,
		OnStartup: cfg.Ingest.OnStartup,
		Stop:      make(chan struct{}),
	}
	sched.Start()
	defer close(sched.Stop)

	hub := NewHub(orch)
	ch := &ChatHandler{Orch: orch, Ingestor: ingestor, Hub: hub}
	ch.Register(e.Group("/api"))
	e.GET("/ws", hub.Handle)

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":10002"
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errCh <- e.Start(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-quit:
		log.Printf("received %s, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}
