package fulfill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	storage_go "github.com/supabase-community/storage-go"
)

// EmailSender delivers a notification email.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMSSender delivers a text message.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// WebhookSender posts a submission payload to a tenant-configured URL.
type WebhookSender interface {
	Send(ctx context.Context, url string, payload any) error
}

// Invoker fires a named downstream function with a structured payload.
type Invoker interface {
	Invoke(ctx context.Context, function string, payload any) error
}

// Archiver writes the raw submission object to blob storage.
type Archiver interface {
	Put(ctx context.Context, bucket, key string, data []byte) error
}

// HTTPEmailSender sends through a transactional email provider's JSON API.
type HTTPEmailSender struct {
	client *http.Client
	url    string
	apiKey string
	from   string
}

// NewHTTPEmailSender creates an email sender for the provider endpoint.
func NewHTTPEmailSender(url, apiKey, from string) *HTTPEmailSender {
	return &HTTPEmailSender{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
		apiKey: apiKey,
		from:   from,
	}
}

// Send implements EmailSender.
func (s *HTTPEmailSender) Send(ctx context.Context, to []string, subject, body string) error {
	if s.url == "" {
		return fmt.Errorf("email provider is not configured")
	}
	return postJSON(ctx, s.client, s.url, s.apiKey, map[string]any{
		"from":    s.from,
		"to":      to,
		"subject": subject,
		"text":    body,
	})
}

// HTTPSMSSender sends through an SMS provider's JSON API.
type HTTPSMSSender struct {
	client *http.Client
	url    string
	apiKey string
	from   string
}

// NewHTTPSMSSender creates an SMS sender for the provider endpoint.
func NewHTTPSMSSender(url, apiKey, from string) *HTTPSMSSender {
	return &HTTPSMSSender{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
		apiKey: apiKey,
		from:   from,
	}
}

// Send implements SMSSender.
func (s *HTTPSMSSender) Send(ctx context.Context, to, message string) error {
	if s.url == "" {
		return fmt.Errorf("SMS provider is not configured")
	}
	return postJSON(ctx, s.client, s.url, s.apiKey, map[string]any{
		"from": s.from,
		"to":   to,
		"body": message,
	})
}

// HTTPWebhookSender implements WebhookSender with a plain JSON POST. Any
// query string on the configured URL is preserved as-is.
type HTTPWebhookSender struct {
	client *http.Client
}

// NewHTTPWebhookSender creates a webhook sender.
func NewHTTPWebhookSender() *HTTPWebhookSender {
	return &HTTPWebhookSender{client: &http.Client{Timeout: 15 * time.Second}}
}

// Send implements WebhookSender.
func (s *HTTPWebhookSender) Send(ctx context.Context, url string, payload any) error {
	return postJSON(ctx, s.client, url, "", payload)
}

// SupabaseArchiver implements Archiver on Supabase storage buckets.
type SupabaseArchiver struct {
	storage *storage_go.Client
}

// NewSupabaseArchiver creates an archiver over the storage client.
func NewSupabaseArchiver(storage *storage_go.Client) *SupabaseArchiver {
	return &SupabaseArchiver{storage: storage}
}

// Put implements Archiver.
func (a *SupabaseArchiver) Put(ctx context.Context, bucket, key string, data []byte) error {
	if bucket == "" {
		return fmt.Errorf("archive bucket is not configured")
	}
	contentType := "application/json"
	_, err := a.storage.UploadFile(bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("archive upload failed: %w", err)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return nil
}
