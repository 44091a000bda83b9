package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/newsrag/internal/chat"
	"github.com/mohammad-safakhou/newsrag/models"
)

// Orchestrator is the slice of the query pipeline the transport adapters
// consume. Both the REST handlers and the websocket hub go through it, so
// session semantics are identical on either surface.
type Orchestrator interface {
	ProcessQuery(ctx context.Context, sessionID, query string) (chat.Result, error)
	History(ctx context.Context, sessionID string) ([]models.ChatTurn, error)
	Clear(ctx context.Context, sessionID string) (bool, error)
}

// Ingestor triggers a corpus ingestion run.
type Ingestor interface {
	Run(ctx context.Context) (int, error)
}

// ChatHandler exposes the session and chat endpoints.
type ChatHandler struct {
	Orch     Orchestrator
	Ingestor Ingestor
	Hub      *Hub
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/sessions", h.createSession)
	g.GET("/sessions/:id/history", h.history)
	g.DELETE("/sessions/:id", h.clearSession)
	g.POST("/chat", h.sendMessage)
	g.POST("/ingest", h.ingest)
}

// createSession hands out a fresh opaque session id. The store creates the
// session lazily on first append.
func (h *ChatHandler) createSession(c echo.Context) error {
	return c.JSON(http.StatusOK, CreateSessionResponse{SessionID: uuid.NewString()})
}

func (h *ChatHandler) history(c echo.Context) error {
	sessionID := c.Param("id")
	turns, err := h.Orch.History(c.Request().Context(), sessionID)
	if err != nil {
		return toHTTPError(err)
	}
	if turns == nil {
		turns = []models.ChatTurn{}
	}
	return c.JSON(http.StatusOK, HistoryResponse{SessionID: sessionID, History: turns})
}

func (h *ChatHandler) clearSession(c echo.Context) error {
	sessionID := c.Param("id")
	existed, err := h.Orch.Clear(c.Request().Context(), sessionID)
	if err != nil {
		return toHTTPError(err)
	}
	if existed && h.Hub != nil {
		h.Hub.BroadcastSessionCleared(sessionID)
	}
	return c.JSON(http.StatusOK, ClearResponse{Success: existed})
}

func (h *ChatHandler) sendMessage(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	start := time.Now()
	result, err := h.Orch.ProcessQuery(c.Request().Context(), req.SessionID, req.Message)
	queryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		queriesTotal.WithLabelValues("error").Inc()
		return toHTTPError(err)
	}
	queriesTotal.WithLabelValues("ok").Inc()

	return c.JSON(http.StatusOK, ChatResponse(result))
}

func (h *ChatHandler) ingest(c echo.Context) error {
	count, err := h.Ingestor.Run(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "ingestion failed")
	}
	ingestedArticles.Add(float64(count))
	return c.JSON(http.StatusOK, IngestResponse{Count: count})
}

// toHTTPError maps pipeline error kinds to transport codes without leaking
// provider internals.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, strings.TrimPrefix(err.Error(), chat.ErrValidation.Error()+": "))
	case errors.Is(err, chat.ErrRetrieval):
		return echo.NewHTTPError(http.StatusBadGateway, "retrieval failed")
	case errors.Is(err, chat.ErrGeneration):
		return echo.NewHTTPError(http.StatusBadGateway, "generation failed")
	case errors.Is(err, chat.ErrStore):
		return echo.NewHTTPError(http.StatusInternalServerError, "session store unavailable")
	default:
		return err
	}
}
