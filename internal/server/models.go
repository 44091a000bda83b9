package server

import "github.com/mohammad-safakhou/newsrag/models"

// CreateSessionResponse is returned by POST /api/sessions.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// HistoryResponse is returned by GET /api/sessions/:id/history.
type HistoryResponse struct {
	SessionID string            `json:"session_id"`
	History   []models.ChatTurn `json:"history"`
}

// ClearResponse is returned by DELETE /api/sessions/:id.
type ClearResponse struct {
	Success bool `json:"success"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse is returned by POST /api/chat.
type ChatResponse struct {
	Response string          `json:"response"`
	Sources  []models.Source `json:"sources"`
}

// IngestResponse is returned by POST /api/ingest.
type IngestResponse struct {
	Count int `json:"count"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}
