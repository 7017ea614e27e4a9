package coach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bridgetext/coach/internal/domain"
	"github.com/bridgetext/coach/internal/safety"
	"github.com/bridgetext/coach/internal/store"
)

// Greetings that should prompt for a tone choice instead of coaching.
var greetingWords = map[string]bool{
	"hi": true, "hello": true, "hey": true,
	"hii": true, "hiii": true, "sup": true, "yo": true,
}

// Engine is the conversation state machine. It owns stage transitions, tone
// storage, quick-reply decisions, and the message-limit gate, and orchestrates
// the classifier, retriever, and generator per turn.
type Engine struct {
	repo       store.Repository
	classifier safety.Classifier
	retriever  Retriever
	generator  Generator
	limit      int
	timeout    time.Duration
	now        func() time.Time
	log        *slog.Logger
}

// EngineConfig holds engine tunables.
type EngineConfig struct {
	// MessageLimit caps generator-backed turns per session.
	MessageLimit int
	// RequestTimeout bounds each retriever and generator call.
	RequestTimeout time.Duration
}

// NewEngine creates a conversation engine with its collaborators.
func NewEngine(repo store.Repository, classifier safety.Classifier, retriever Retriever, generator Generator, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = 10
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Engine{
		repo:       repo,
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		limit:      cfg.MessageLimit,
		timeout:    cfg.RequestTimeout,
		now:        time.Now,
		log:        logger,
	}
}

// ProcessTurn handles one user message and returns the structured reply.
//
// Safety-blocked turns and fixed stage-transition replies do not increment the
// turn counter; only turns that successfully invoke the generator count.
func (e *Engine) ProcessTurn(ctx context.Context, userID, message string) (*Reply, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}

	// The classifier gates every turn before any state read or network call.
	switch e.classifier.Classify(trimmed) {
	case safety.VerdictHarmful:
		return &Reply{Response: crisisMessage}, nil
	case safety.VerdictOffTopic:
		return &Reply{Response: offTopicMessage}, nil
	}

	sess, err := e.repo.GetSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess = domain.NewSession(userID)
	}

	// Limit gate: the counter is capped, not unbounded.
	if sess.TurnCount >= e.limit {
		return &Reply{Response: limitMessage, LimitReached: true}, nil
	}

	switch sess.Stage {
	case domain.StageAwaitingTone:
		if tone, ok := domain.MatchTone(trimmed); ok {
			sess.Tone = tone
			sess.Stage = domain.StageAwaitingTopic
			sess.UpdatedAt = e.now()
			if err := e.repo.PutSession(ctx, sess); err != nil {
				return nil, fmt.Errorf("persist session: %w", err)
			}
			return &Reply{
				Response:     toneConfirmation(tone),
				QuickReplies: domain.QuickReplies(domain.StageAwaitingTopic),
			}, nil
		}
		if greetingWords[strings.ToLower(trimmed)] {
			// Greet and offer the tone choice; nothing to persist yet.
			return &Reply{
				Response:     greetingMessage,
				QuickReplies: domain.QuickReplies(domain.StageAwaitingTone),
			}, nil
		}
		// The user led with a real question before choosing a tone. Default
		// to Professional and answer it in this same turn.
		e.log.Info("tone defaulted before selection", "user_id", userID, "tone", domain.ToneProfessional)
		sess.Tone = domain.ToneProfessional
		sess.Stage = domain.StageFreeDialogue
		return e.respond(ctx, sess, trimmed)

	case domain.StageAwaitingTopic:
		if topic, ok := domain.MatchTopic(trimmed); ok {
			sess.Stage = domain.StageFreeDialogue
			sess.UpdatedAt = e.now()
			if err := e.repo.PutSession(ctx, sess); err != nil {
				return nil, fmt.Errorf("persist session: %w", err)
			}
			return &Reply{Response: topicAcknowledgement(topic)}, nil
		}
		// Free-form coaching request instead of a topic pick: keep the message.
		sess.Stage = domain.StageFreeDialogue
		return e.respond(ctx, sess, trimmed)

	default:
		return e.respond(ctx, sess, trimmed)
	}
}

// respond runs the generative path: retrieve context, build the prompt, call
// the generator, and persist the exchange.
func (e *Engine) respond(ctx context.Context, sess *domain.Session, message string) (*Reply, error) {
	if sess.Tone == "" {
		// Invariant violation: free dialogue requires a tone. Recover with the
		// default rather than failing the turn.
		e.log.Error("session reached free dialogue without a tone",
			"user_id", sess.UserID, "stage", sess.Stage)
		sess.Tone = domain.ToneProfessional
	}

	snippets := e.retrieve(ctx, message)
	fw := SelectFramework(message)

	prompt, err := BuildPrompt(sess.Tone, fw, sess.Recent(maxHistoryPairs), snippets, message)
	if err != nil {
		e.log.Error("prompt build failed", "user_id", sess.UserID, "error", err)
		return &Reply{Response: apologyMessage}, nil
	}

	genCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.generator.Generate(genCtx, prompt)
	if err != nil {
		// Recovered locally: the caller sees a generic apology, never the
		// underlying failure. No state is mutated.
		e.log.Error("generation failed",
			"user_id", sess.UserID, "framework", fw, "error", err)
		return &Reply{Response: apologyMessage}, nil
	}

	reply := FormatReply(text)
	sess.Append(message, reply, e.now())
	sess.TurnCount++
	if err := e.repo.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	return &Reply{Response: reply}, nil
}

func (e *Engine) retrieve(ctx context.Context, message string) []string {
	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	snippets, err := e.retriever.Query(rctx, message, maxSnippets)
	if err != nil {
		e.log.Warn("context retrieval failed, continuing without snippets", "error", err)
		return nil
	}
	return snippets
}
