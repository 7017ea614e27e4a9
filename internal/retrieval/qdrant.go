package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/bridgetext/coach/internal/coach"
)

// Config holds Qdrant connection configuration.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantRetriever implements coach.Retriever against a Qdrant collection of
// coaching scenarios.
type QdrantRetriever struct {
	client     *qdrant.Client
	embedder   Embedder
	collection string
	logger     *slog.Logger
}

var _ coach.Retriever = (*QdrantRetriever)(nil)

// NewQdrantRetriever connects to Qdrant and verifies the collection exists.
func NewQdrantRetriever(ctx context.Context, cfg Config, embedder Embedder, logger *slog.Logger) (*QdrantRetriever, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:    2 * time.Minute,
				Timeout: 10 * time.Second,
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check collection %q: %w", cfg.Collection, err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("collection %q does not exist", cfg.Collection)
	}

	logger.Info("connected to qdrant", "host", cfg.Host, "collection", cfg.Collection)

	return &QdrantRetriever{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		logger:     logger,
	}, nil
}

// Query embeds the text and returns up to limit snippet strings.
func (r *QdrantRetriever) Query(ctx context.Context, text string, limit int) ([]string, error) {
	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	points, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %q: %w", r.collection, err)
	}

	return snippetsFromPoints(points), nil
}

// HealthCheck verifies the collection is still reachable.
func (r *QdrantRetriever) HealthCheck(ctx context.Context) error {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("check collection %q: %w", r.collection, err)
	}
	if !exists {
		return fmt.Errorf("collection %q no longer exists", r.collection)
	}
	return nil
}

// Close closes the Qdrant connection.
func (r *QdrantRetriever) Close() error {
	return r.client.Close()
}

// snippetsFromPoints extracts snippet text from scored point payloads. The
// snippet lives under "text", with "page_content" as a legacy fallback.
func snippetsFromPoints(points []*qdrant.ScoredPoint) []string {
	var snippets []string
	for _, point := range points {
		if point == nil || point.Payload == nil {
			continue
		}
		text := point.Payload["text"].GetStringValue()
		if text == "" {
			text = point.Payload["page_content"].GetStringValue()
		}
		if text != "" {
			snippets = append(snippets, text)
		}
	}
	return snippets
}
