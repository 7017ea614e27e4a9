// Package coach implements the conversation orchestration engine: the
// per-session state machine, quick-reply decisions, the message-limit gate,
// and prompt construction for the generation backend.
package coach

import (
	"context"
	"errors"
)

// Prompt is the instruction payload sent to the generation backend.
type Prompt struct {
	System string
	User   string
}

// Generator produces coaching text from a prompt. Implementations may block;
// the engine bounds every call with a timeout.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Retriever returns up to limit supporting snippets for a query. A failed
// retrieval never fails the turn; the engine degrades to empty context.
type Retriever interface {
	Query(ctx context.Context, text string, limit int) ([]string, error)
}

// Reply is the structured result of one processed turn.
type Reply struct {
	Response     string
	QuickReplies []string
	LimitReached bool
}

// ErrEmptyMessage is returned for empty or whitespace-only input.
// No session state is mutated in that case.
var ErrEmptyMessage = errors.New("message cannot be empty")
