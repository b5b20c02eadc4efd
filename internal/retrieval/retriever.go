package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/longhornrumble/widget-backend/internal/cache"
	"github.com/longhornrumble/widget-backend/pkg/logger"
	"github.com/longhornrumble/widget-backend/pkg/metrics"
)

// topK is the fixed number of snippets requested per query.
const topK = 5

// Retriever serves context snippets through a TTL cache keyed on the
// knowledge index and the normalized query text. Cache hits require the
// normalized text to be identical; semantically similar rephrasings miss.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	cache    *cache.Cache[string, []string]
	logger   *logger.Logger
}

// NewRetriever creates a cached retriever.
func NewRetriever(embedder Embedder, searcher Searcher, ttl time.Duration, log *logger.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		cache:    cache.New[string, []string](ttl),
		logger:   log,
	}
}

// Retrieve returns context snippets for the query. Any failure degrades to
// "no context" rather than aborting the turn.
func (r *Retriever) Retrieve(ctx context.Context, indexID, query string) []string {
	normalized := NormalizeQuery(query)
	if indexID == "" || normalized == "" {
		return nil
	}

	key := cacheKey(indexID, normalized)
	snippets, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]string, error) {
		metrics.CacheLookupsTotal.WithLabelValues("retrieval", "miss").Inc()
		vector, err := r.embedder.Embed(ctx, normalized)
		if err != nil {
			return nil, err
		}
		return r.searcher.Search(ctx, indexID, vector, topK)
	})
	if err != nil {
		r.logger.Warn("context retrieval failed, continuing without context",
			zap.String("index_id", indexID),
			zap.Error(err),
		)
		return nil
	}
	return snippets
}

// NormalizeQuery lowercases, trims, and collapses internal whitespace so
// near-identical phrasings share a cache key.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func cacheKey(indexID, normalized string) string {
	sum := sha256.Sum256([]byte(indexID + "\x00" + normalized))
	return hex.EncodeToString(sum[:])
}
