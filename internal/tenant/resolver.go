package tenant

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/longhornrumble/widget-backend/internal/cache"
	"github.com/longhornrumble/widget-backend/internal/model"
	"github.com/longhornrumble/widget-backend/pkg/logger"
	"github.com/longhornrumble/widget-backend/pkg/metrics"
)

// Default generation parameters used when configuration cannot be loaded.
const (
	defaultModelID     = "claude-3-5-haiku-20241022"
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
)

// Resolver serves tenant configuration through a TTL cache. It never fails:
// a load error degrades to DefaultConfig so the turn still produces an
// answer, just without tenant CTAs, branches, or forms.
type Resolver struct {
	store  Store
	cache  *cache.Cache[string, *model.TenantConfig]
	logger *logger.Logger
}

// NewResolver creates a cached resolver over store.
func NewResolver(store Store, ttl time.Duration, log *logger.Logger) *Resolver {
	return &Resolver{
		store:  store,
		cache:  cache.New[string, *model.TenantConfig](ttl),
		logger: log,
	}
}

// Config returns the tenant's configuration for handle. On any load failure
// it logs and returns the documented default instead of propagating.
func (r *Resolver) Config(ctx context.Context, handle string) *model.TenantConfig {
	loaded := false
	cfg, err := r.cache.GetOrLoad(ctx, handle, func(ctx context.Context) (*model.TenantConfig, error) {
		loaded = true
		metrics.CacheLookupsTotal.WithLabelValues("tenant_config", "miss").Inc()
		return r.store.Resolve(ctx, handle)
	})
	if err != nil {
		r.logger.Warn("tenant config load failed, using defaults",
			zap.String("handle", handle),
			zap.Error(err),
		)
		return DefaultConfig()
	}
	if !loaded {
		metrics.CacheLookupsTotal.WithLabelValues("tenant_config", "hit").Inc()
	}
	return cfg
}

// DefaultConfig is the degraded configuration: default model parameters and
// empty CTA, branch, and form catalogs.
func DefaultConfig() *model.TenantConfig {
	return &model.TenantConfig{
		ModelID:     defaultModelID,
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}
}
