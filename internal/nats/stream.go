package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/longhornrumble/widget-backend/internal/model"
)

const (
	// StreamName is the name of the widget activity stream.
	StreamName = "WIDGET"

	// SubjectPrefix is the prefix for all widget subjects.
	SubjectPrefix = "widget"

	// invokeSubjectPrefix carries async function invocations. Not part of
	// the audit stream.
	invokeSubjectPrefix = "widget-invoke"
)

// TurnEvent is the audit record published for each completed turn.
type TurnEvent struct {
	TenantID      string    `json:"tenant_id"`
	SessionID     string    `json:"session_id"`
	CorrelationID string    `json:"correlation_id"`
	Mode          string    `json:"mode"`
	Success       bool      `json:"success"`
	CtaCount      int       `json:"cta_count,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// SubmissionEvent is the audit record published for each form submission.
type SubmissionEvent struct {
	TenantID     string         `json:"tenant_id"`
	FormID       string         `json:"form_id"`
	SubmissionID string         `json:"submission_id"`
	Priority     model.Priority `json:"priority"`
	Timestamp    time.Time      `json:"timestamp"`
}

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the widget stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	// Create stream
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Widget turn and submission audit events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject for a turn event.
func TurnSubject(tenantID, mode string) string {
	return fmt.Sprintf("%s.%s.turn.%s", SubjectPrefix, tenantID, mode)
}

// SubmissionSubject returns the subject for a submission event.
func SubmissionSubject(tenantID, formID string) string {
	return fmt.Sprintf("%s.%s.submission.%s", SubjectPrefix, tenantID, formID)
}

// InvokeSubject returns the subject for an async function invocation.
func InvokeSubject(function string) string {
	return fmt.Sprintf("%s.%s", invokeSubjectPrefix, function)
}

// PublishTurnEvent publishes a turn audit event to JetStream.
func (m *StreamManager) PublishTurnEvent(ctx context.Context, event *TurnEvent) (uint64, error) {
	subject := TurnSubject(event.TenantID, event.Mode)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal turn event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish turn event: %w", err)
	}

	return ack.Sequence, nil
}

// PublishSubmissionEvent publishes a submission audit event to JetStream.
func (m *StreamManager) PublishSubmissionEvent(ctx context.Context, event *SubmissionEvent) (uint64, error) {
	subject := SubmissionSubject(event.TenantID, event.FormID)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal submission event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish submission event: %w", err)
	}

	return ack.Sequence, nil
}

// Invoker dispatches async function invocations over core NATS. Consumers
// subscribe to widget-invoke.<function> and process at their own pace.
type Invoker struct {
	client *Client
}

// NewInvoker creates a NATS-backed invoker.
func NewInvoker(client *Client) *Invoker {
	return &Invoker{client: client}
}

// Invoke publishes the payload to the function's invoke subject.
func (i *Invoker) Invoke(ctx context.Context, function string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal invoke payload: %w", err)
	}

	if err := i.client.Conn().Publish(InvokeSubject(function), data); err != nil {
		return fmt.Errorf("failed to publish invocation: %w", err)
	}

	return nil
}
