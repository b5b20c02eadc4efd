// Package store persists submissions and SMS usage counters.
package store

import (
	"context"
	"errors"

	"github.com/longhornrumble/widget-backend/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the durable key-value surface the fulfillment router depends on.
// Implementations must make IncrSMSUsage additive so concurrent submissions
// in the same month converge rather than clobber.
type Store interface {
	// PutSubmission writes a submission once. Submissions are never mutated
	// after persistence.
	PutSubmission(ctx context.Context, sub *model.Submission) error

	// GetSubmission returns a persisted submission or ErrNotFound.
	GetSubmission(ctx context.Context, tenantID, submissionID string) (*model.Submission, error)

	// GetSMSUsage returns the SMS count for the tenant and calendar month
	// (yyyymm). A missing record is usage 0, not an error.
	GetSMSUsage(ctx context.Context, tenantID, yyyymm string) (int64, error)

	// IncrSMSUsage atomically adds 1 to the tenant's monthly counter and
	// returns the new value.
	IncrSMSUsage(ctx context.Context, tenantID, yyyymm string) (int64, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
