// Package generation provides the Gemini-backed text generator.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bridgetext/coach/internal/coach"
)

// Config holds generation backend configuration.
type Config struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// DefaultConfig returns default generation settings for short coaching replies.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:          apiKey,
		Model:           "gemini-2.5-flash",
		Temperature:     0.6,
		MaxOutputTokens: 256,
	}
}

// Gemini implements coach.Generator using the Google GenAI API.
type Gemini struct {
	client *genai.Client
	model  string
	temp   float32
	tokens int32
	logger *slog.Logger
}

// Ensure Gemini implements the engine contract.
var _ coach.Generator = (*Gemini)(nil)

// NewGemini creates a Gemini generator.
func NewGemini(ctx context.Context, cfg Config, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generation API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  cfg.Model,
		temp:   cfg.Temperature,
		tokens: cfg.MaxOutputTokens,
		logger: logger,
	}, nil
}

// Generate sends the prompt to the model and returns the completion text.
// The caller bounds ctx with a timeout; a hung backend surfaces as ctx error.
func (g *Gemini) Generate(ctx context.Context, prompt coach.Prompt) (string, error) {
	start := time.Now()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr(g.temp),
		MaxOutputTokens:   g.tokens,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.User), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("no completion returned")
	}

	g.logger.Debug("generation complete",
		"model", g.model,
		"duration", time.Since(start),
		"response_len", len(text),
	)
	return text, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string {
	return g.model
}
