package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/longhornrumble/widget-backend/internal/model"
	"github.com/longhornrumble/widget-backend/pkg/logger"
)

type stubStore struct {
	cfg   *model.TenantConfig
	err   error
	calls int
}

func (s *stubStore) Resolve(ctx context.Context, handle string) (*model.TenantConfig, error) {
	s.calls++
	return s.cfg, s.err
}

func TestConfigCachesAcrossCalls(t *testing.T) {
	st := &stubStore{cfg: &model.TenantConfig{TenantID: "t1", ModelID: "m"}}
	r := NewResolver(st, 5*time.Minute, logger.NewNop())

	cfg := r.Config(context.Background(), "handle-1")
	assert.Equal(t, "t1", cfg.TenantID)

	r.Config(context.Background(), "handle-1")
	assert.Equal(t, 1, st.calls)
}

func TestConfigDegradesToDefaultOnFailure(t *testing.T) {
	st := &stubStore{err: errors.New("postgrest unreachable")}
	r := NewResolver(st, 5*time.Minute, logger.NewNop())

	cfg := r.Config(context.Background(), "handle-1")

	// The turn must still produce an answer: default model parameters,
	// empty catalogs.
	assert.Equal(t, defaultModelID, cfg.ModelID)
	assert.Empty(t, cfg.Ctas)
	assert.Empty(t, cfg.Branches)
	assert.Empty(t, cfg.Forms)

	// Failures are not cached; the next call retries the loader.
	r.Config(context.Background(), "handle-1")
	assert.Equal(t, 2, st.calls)
}
