package fulfill

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/longhornrumble/widget-backend/internal/store"
	"github.com/longhornrumble/widget-backend/pkg/logger"
	"github.com/longhornrumble/widget-backend/pkg/metrics"
)

// ReasonMonthlyLimitReached is the skip reason when the SMS budget is spent.
const ReasonMonthlyLimitReached = "monthly_limit_reached"

// SMSUsage reports one reservation attempt against the monthly budget.
type SMSUsage struct {
	Allowed bool
	Usage   int64
	Limit   int64
}

// SMSLimiter enforces an approximate per-tenant monthly SMS budget. It fails
// open: a storage hiccup must not silently drop a legitimate notification,
// and slight race-driven overshoot of the limit is accepted rather than
// introducing distributed locking.
type SMSLimiter struct {
	store  store.Store
	limit  int64
	logger *logger.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewSMSLimiter creates a limiter with the given monthly limit.
func NewSMSLimiter(s store.Store, limit int64, log *logger.Logger) *SMSLimiter {
	return &SMSLimiter{store: s, limit: limit, logger: log, now: time.Now}
}

// CheckAndReserve reads the current month's counter and, if under the limit,
// reserves one send by incrementing it. Read failures count as zero usage;
// increment failures are logged and the send proceeds anyway.
func (l *SMSLimiter) CheckAndReserve(ctx context.Context, tenantID string) SMSUsage {
	month := l.now().UTC().Format("200601")

	usage, err := l.store.GetSMSUsage(ctx, tenantID, month)
	if err != nil {
		l.logger.Warn("SMS usage read failed, failing open",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		usage = 0
	}

	if usage >= l.limit {
		return SMSUsage{Allowed: false, Usage: usage, Limit: l.limit}
	}

	newUsage, err := l.store.IncrSMSUsage(ctx, tenantID, month)
	if err != nil {
		l.logger.Warn("SMS usage increment failed, proceeding",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		newUsage = usage + 1
	}
	metrics.SMSMonthlyUsage.WithLabelValues(tenantID).Set(float64(newUsage))

	return SMSUsage{Allowed: true, Usage: newUsage, Limit: l.limit}
}
