// Package domain contains core domain types for the BridgeText coaching service.
package domain

import (
	"strings"
	"time"
)

// Stage is the conversation's position in the tone, topic, free-dialogue
// progression. It only ever advances, except on an explicit clear.
type Stage string

const (
	StageAwaitingTone  Stage = "awaiting_tone"
	StageAwaitingTopic Stage = "awaiting_topic"
	StageFreeDialogue  Stage = "free_dialogue"
)

// Tone is the per-session style directive applied to all generated replies.
type Tone string

const (
	ToneProfessional Tone = "Professional"
	ToneCasual       Tone = "Casual"
)

// Tones lists the selectable tone labels in quick-reply order.
var Tones = []string{string(ToneProfessional), string(ToneCasual)}

// Topics lists the fixed coaching topic labels in quick-reply order.
// The same catalog drives both quick-reply generation and input matching.
var Topics = []string{
	"Work relationships",
	"Stress & deadlines",
	"Career growth",
	"Team conflicts",
}

// Exchange is one user/assistant pair in the conversation history.
type Exchange struct {
	User      string    `json:"user"`
	AI        string    `json:"ai"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds all per-user conversation state.
type Session struct {
	UserID    string
	Stage     Stage
	Tone      Tone
	TurnCount int
	History   []Exchange
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession returns a fresh session in the initial stage.
func NewSession(userID string) *Session {
	now := time.Now()
	return &Session{
		UserID:    userID,
		Stage:     StageAwaitingTone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append records a completed exchange.
func (s *Session) Append(user, ai string, at time.Time) {
	s.History = append(s.History, Exchange{User: user, AI: ai, Timestamp: at})
	s.UpdatedAt = at
}

// Recent returns the last n exchanges from history.
func (s *Session) Recent(n int) []Exchange {
	if n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// MatchTone maps free-text input to a tone label, case-insensitively.
func MatchTone(input string) (Tone, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "professional":
		return ToneProfessional, true
	case "casual":
		return ToneCasual, true
	}
	return "", false
}

// MatchTopic maps free-text input to a canonical topic label, case-insensitively.
func MatchTopic(input string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, topic := range Topics {
		if normalized == strings.ToLower(topic) {
			return topic, true
		}
	}
	return "", false
}

// QuickReplies returns the tappable shortcut labels offered at a stage.
// Free dialogue never offers quick replies.
func QuickReplies(stage Stage) []string {
	switch stage {
	case StageAwaitingTone:
		return append([]string(nil), Tones...)
	case StageAwaitingTopic:
		return append([]string(nil), Topics...)
	}
	return nil
}
