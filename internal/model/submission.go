package model

import "time"

// Priority is the fulfillment tier of a submission.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Submission statuses.
const (
	SubmissionStatusPending = "pending_fulfillment"
	SubmissionStatusDone    = "fulfilled"
)

// Channel result statuses.
const (
	ChannelStatusSent    = "sent"
	ChannelStatusFailed  = "failed"
	ChannelStatusSkipped = "skipped"
	ChannelStatusInvoked = "invoked"
	ChannelStatusStored  = "stored"
)

// Submission is one completed form submission. Written once at creation;
// the store owns it afterwards.
type Submission struct {
	SubmissionID string            `json:"submission_id"`
	FormID       string            `json:"form_id"`
	TenantID     string            `json:"tenant_id"`
	FormData     map[string]string `json:"form_data"`
	Priority     Priority          `json:"priority"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ChannelResult is the independent outcome of one delivery channel.
type ChannelResult struct {
	Channel string `json:"channel"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// SubmissionResult reports one fulfillment run. Channel failures never fail
// the overall submission; only missing required inputs do.
type SubmissionResult struct {
	SubmissionID string          `json:"submission_id,omitempty"`
	FormID       string          `json:"form_id"`
	Status       string          `json:"status"`
	Priority     Priority        `json:"priority,omitempty"`
	Channels     []ChannelResult `json:"channels,omitempty"`
	Message      string          `json:"message,omitempty"`
}
