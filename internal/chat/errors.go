package chat

import "errors"

// Error kinds for the query pipeline. Transport adapters map these to status
// codes or error events; provider details stay wrapped underneath.
var (
	// ErrValidation marks a rejected request; no store or provider call was
	// made.
	ErrValidation = errors.New("validation error")
	// ErrRetrieval marks an embedding or vector search failure. The user
	// turn is already durable; no assistant turn was appended.
	ErrRetrieval = errors.New("retrieval error")
	// ErrGeneration marks a completion failure. Same state as ErrRetrieval.
	ErrGeneration = errors.New("generation error")
	// ErrStore marks a session store failure. A failed history read fails
	// the whole query: answering with silently dropped context would be
	// misleading.
	ErrStore = errors.New("session store error")
)
