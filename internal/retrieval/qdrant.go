// Package retrieval fetches domain context snippets for a user query.
package retrieval

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"github.com/sashabaranov/go-openai"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs top-k similarity search against a knowledge index.
type Searcher interface {
	Search(ctx context.Context, indexID string, vector []float32, limit int) ([]string, error)
}

// OpenAIEmbedder implements Embedder with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
}

// NewOpenAIEmbedder creates an embedder.
func NewOpenAIEmbedder(apiKey string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return &OpenAIEmbedder{client: openai.NewClient(apiKey)}, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response was empty")
	}
	return resp.Data[0].Embedding, nil
}

// QdrantSearcher implements Searcher against a Qdrant server. The knowledge
// index id maps to a Qdrant collection name.
type QdrantSearcher struct {
	client *qdrant.Client
}

// NewQdrantSearcher creates a Qdrant searcher.
func NewQdrantSearcher(rawURL, apiKey string) (*QdrantSearcher, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	parsed := rawURL
	if !strings.HasPrefix(parsed, "http://") && !strings.HasPrefix(parsed, "https://") {
		parsed = "https://" + parsed
	}
	u, err := url.Parse(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantSearcher{client: client}, nil
}

// Search implements Searcher, returning snippet text in score order.
func (s *QdrantSearcher) Search(ctx context.Context, indexID string, vector []float32, limit int) ([]string, error) {
	limitUint64 := uint64(limit)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: indexID,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limitUint64,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	snippets := make([]string, 0, len(points))
	for _, point := range points {
		if point.Payload == nil {
			continue
		}
		if v, ok := point.Payload["content"]; ok {
			if text := v.GetStringValue(); text != "" {
				snippets = append(snippets, text)
			}
		}
	}
	return snippets, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantSearcher) Close() error {
	return s.client.Close()
}
