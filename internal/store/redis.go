package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/longhornrumble/widget-backend/internal/model"
)

const (
	submissionKeyPrefix = "submission:"
	smsUsageKeyPrefix   = "sms_usage:"

	// Submissions are an operational audit record, not an archive; the
	// archive channel owns long-term retention.
	submissionTTL = 90 * 24 * time.Hour
)

// RedisStore implements Store on Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// PutSubmission implements Store.
func (s *RedisStore) PutSubmission(ctx context.Context, sub *model.Submission) error {
	val, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, submissionKey(sub.TenantID, sub.SubmissionID), val, submissionTTL).Err()
}

// GetSubmission implements Store.
func (s *RedisStore) GetSubmission(ctx context.Context, tenantID, submissionID string) (*model.Submission, error) {
	val, err := s.client.Get(ctx, submissionKey(tenantID, submissionID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sub model.Submission
	if err := json.Unmarshal([]byte(val), &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSMSUsage implements Store. A missing counter reads as zero.
func (s *RedisStore) GetSMSUsage(ctx context.Context, tenantID, yyyymm string) (int64, error) {
	val, err := s.client.Get(ctx, smsUsageKey(tenantID, yyyymm)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

// IncrSMSUsage implements Store. INCR is atomic server-side, so concurrent
// submissions in the same month converge.
func (s *RedisStore) IncrSMSUsage(ctx context.Context, tenantID, yyyymm string) (int64, error) {
	key := smsUsageKey(tenantID, yyyymm)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// Counters expire well after the month they cover.
	s.client.Expire(ctx, key, 62*24*time.Hour)
	return n, nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func submissionKey(tenantID, submissionID string) string {
	return submissionKeyPrefix + tenantID + ":" + submissionID
}

func smsUsageKey(tenantID, yyyymm string) string {
	return smsUsageKeyPrefix + tenantID + ":" + yyyymm
}
