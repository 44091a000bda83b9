package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/newsrag/internal/prompt"
	"github.com/mohammad-safakhou/newsrag/internal/session"
	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/provider"
)

// Retriever yields the top-K passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]models.RetrievedPassage, error)
}

// Result is the outcome of one processed query.
type Result struct {
	Response string          `json:"response"`
	Sources  []models.Source `json:"sources"`
}

// Orchestrator runs the session-scoped RAG pipeline. All collaborators are
// injected once at construction and shared across concurrent queries; every
// external call inherits the per-query timeout.
type Orchestrator struct {
	store     session.Store
	retriever Retriever
	assembler *prompt.Assembler
	provider  provider.Provider
	timeout   time.Duration
	logger    *log.Logger
}

func NewOrchestrator(store session.Store, retriever Retriever, assembler *prompt.Assembler, p provider.Provider, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Orchestrator{
		store:     store,
		retriever: retriever,
		assembler: assembler,
		provider:  p,
		timeout:   timeout,
		logger:    log.New(log.Writer(), "[ORCH] ", log.LstdFlags),
	}
}

// ProcessQuery runs the pipeline for one user message:
//
//  1. read history
//  2. append the user turn (durable even if generation later fails)
//  3. retrieve passages
//  4. assemble the prompt from the pre-append history
//  5. generate the completion
//  6. append the assistant turn with its sources
//  7. return the result
//
// Steps are strictly sequential. A retrieval or generation failure leaves
// the session with the user turn recorded and no assistant turn, so a retry
// re-reads the slightly longer history and proceeds. No per-session lock is
// taken: concurrent queries on one session may interleave appends, which is
// accepted since RPUSH keeps every write.
func (o *Orchestrator) ProcessQuery(ctx context.Context, sessionID, query string) (Result, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Result{}, fmt.Errorf("%w: session id is required", ErrValidation)
	}
	if strings.TrimSpace(query) == "" {
		return Result{}, fmt.Errorf("%w: message is required", ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	history, err := o.store.Read(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: reading history: %v", ErrStore, err)
	}

	if err := o.store.Append(ctx, sessionID, models.NewUserTurn(query)); err != nil {
		return Result{}, fmt.Errorf("%w: appending user turn: %v", ErrStore, err)
	}

	passages, err := o.retriever.Retrieve(ctx, query)
	if err != nil {
		o.logger.Printf("retrieval failed for session %s: %v", sessionID, err)
		return Result{}, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	// History from before the user-turn append: the question appears once,
	// in the trailing question section.
	promptText := o.assembler.Build(history, passages, query)

	response, err := o.provider.Complete(ctx, promptText)
	if err != nil {
		o.logger.Printf("generation failed for session %s: %v", sessionID, err)
		return Result{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	sources := make([]models.Source, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, models.Source{Title: p.Title, URL: p.URL})
	}

	if err := o.store.Append(ctx, sessionID, models.NewAssistantTurn(response, sources)); err != nil {
		return Result{}, fmt.Errorf("%w: appending assistant turn: %v", ErrStore, err)
	}

	return Result{Response: response, Sources: sources}, nil
}

// History returns the session's turns oldest first.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]models.ChatTurn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrValidation)
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	turns, err := o.store.Read(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return turns, nil
}

// Clear deletes the session. Returns true if one existed.
func (o *Orchestrator) Clear(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, fmt.Errorf("%w: session id is required", ErrValidation)
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	existed, err := o.store.Clear(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return existed, nil
}
