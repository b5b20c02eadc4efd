package fulfill

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/longhornrumble/widget-backend/internal/model"
	"github.com/longhornrumble/widget-backend/internal/store"
	"github.com/longhornrumble/widget-backend/pkg/logger"
	"github.com/longhornrumble/widget-backend/pkg/metrics"
)

// smsMaxLength is the hard length limit applied to outbound SMS text.
const smsMaxLength = 160

// priorityGlyphs prefix SMS notifications, one glyph per tier.
var priorityGlyphs = map[model.Priority]string{
	model.PriorityHigh:   "🔴",
	model.PriorityNormal: "🟠",
	model.PriorityLow:    "⚪",
}

// confirmationEmailFields are the conventional field names scanned for the
// submitter's address.
var confirmationEmailFields = []string{"email", "email_address", "contact_email"}

// webhookPayload is the body posted to tenant webhooks.
type webhookPayload struct {
	FormID       string            `json:"form_id"`
	SubmissionID string            `json:"submission_id"`
	Priority     model.Priority    `json:"priority"`
	Timestamp    time.Time         `json:"timestamp"`
	Data         map[string]string `json:"data"`
}

// Router persists a completed submission and fans it out to the form's
// delivery channels. Channels run concurrently with isolated failure
// domains; one channel's error never cancels or blocks its siblings, and
// channel failures never fail the overall submission.
type Router struct {
	store    store.Store
	limiter  *SMSLimiter
	email    EmailSender
	sms      SMSSender
	webhook  WebhookSender
	invoker  Invoker
	archiver Archiver
	logger   *logger.Logger
}

// NewRouter creates a fulfillment router.
func NewRouter(
	s store.Store,
	limiter *SMSLimiter,
	email EmailSender,
	sms SMSSender,
	webhook WebhookSender,
	invoker Invoker,
	archiver Archiver,
	log *logger.Logger,
) *Router {
	return &Router{
		store:    s,
		limiter:  limiter,
		email:    email,
		sms:      sms,
		webhook:  webhook,
		invoker:  invoker,
		archiver: archiver,
		logger:   log,
	}
}

// Submit runs the full fulfillment pipeline for one submission. The only
// failure it reports as an overall failure is missing required input; a
// persistence failure is logged and fan-out proceeds regardless, since the
// human-facing notification outranks the audit record.
func (r *Router) Submit(ctx context.Context, tenantID, formID string, formData map[string]string, cfg *model.TenantConfig) *model.SubmissionResult {
	def := cfg.Form(formID)
	if def == nil || len(formData) == 0 || tenantID == "" {
		return &model.SubmissionResult{
			FormID:  formID,
			Status:  "failed",
			Message: "missing form, form data, or tenant",
		}
	}

	sub := &model.Submission{
		SubmissionID: uuid.Must(uuid.NewV7()).String(),
		FormID:       formID,
		TenantID:     tenantID,
		FormData:     formData,
		Priority:     ResolvePriority(def, formData),
		Status:       model.SubmissionStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	metrics.SubmissionsTotal.WithLabelValues(tenantID, string(sub.Priority)).Inc()

	if err := r.store.PutSubmission(ctx, sub); err != nil {
		r.logger.Error("submission persistence failed, continuing with fan-out",
			zap.String("submission_id", sub.SubmissionID),
			zap.String("form_id", formID),
			zap.Error(err),
		)
	}

	results := r.fanOut(ctx, sub, def, cfg)

	return &model.SubmissionResult{
		SubmissionID: sub.SubmissionID,
		FormID:       formID,
		Status:       "success",
		Priority:     sub.Priority,
		Channels:     results,
	}
}

// fanOut attempts every enabled channel concurrently and collects each
// outcome. The confirmation email rides the same wait group but reports
// only to the log, never into the result.
func (r *Router) fanOut(ctx context.Context, sub *model.Submission, def *model.FormDefinition, cfg *model.TenantConfig) []model.ChannelResult {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []model.ChannelResult
	)

	record := func(res model.ChannelResult) {
		metrics.RecordChannel(res.Channel, res.Status)
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
	}

	channels := map[string]func(context.Context) model.ChannelResult{
		model.ChannelEmail:   func(ctx context.Context) model.ChannelResult { return r.sendEmail(ctx, sub, def) },
		model.ChannelSMS:     func(ctx context.Context) model.ChannelResult { return r.sendSMS(ctx, sub, def) },
		model.ChannelWebhook: func(ctx context.Context) model.ChannelResult { return r.sendWebhook(ctx, sub, def) },
		model.ChannelInvoke:  func(ctx context.Context) model.ChannelResult { return r.invoke(ctx, sub, def) },
		model.ChannelArchive: func(ctx context.Context) model.ChannelResult { return r.archive(ctx, sub, def) },
	}

	for name, run := range channels {
		if !def.Fulfillment.Enabled(name) {
			continue
		}
		wg.Add(1)
		go func(name string, run func(context.Context) model.ChannelResult) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("channel panicked",
						zap.String("channel", name),
						zap.Any("panic", p),
					)
					record(model.ChannelResult{Channel: name, Status: model.ChannelStatusFailed, Error: fmt.Sprintf("panic: %v", p)})
				}
			}()
			record(run(ctx))
		}(name, run)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.sendConfirmationEmail(ctx, sub, def, cfg)
	}()

	wg.Wait()

	// Stable ordering for callers and tests.
	sort.Slice(results, func(i, j int) bool { return results[i].Channel < results[j].Channel })
	return results
}

func (r *Router) sendEmail(ctx context.Context, sub *model.Submission, def *model.FormDefinition) model.ChannelResult {
	subject := fmt.Sprintf("New submission: %s", sub.FormID)
	if sub.Priority == model.PriorityHigh {
		subject += " [HIGH]"
	}

	if err := r.email.Send(ctx, def.Fulfillment.EmailRecipients, subject, formatSubmissionBody(sub, def)); err != nil {
		return failed(model.ChannelEmail, err)
	}
	return model.ChannelResult{Channel: model.ChannelEmail, Status: model.ChannelStatusSent}
}

func (r *Router) sendSMS(ctx context.Context, sub *model.Submission, def *model.FormDefinition) model.ChannelResult {
	usage := r.limiter.CheckAndReserve(ctx, sub.TenantID)
	if !usage.Allowed {
		return model.ChannelResult{
			Channel: model.ChannelSMS,
			Status:  model.ChannelStatusSkipped,
			Error:   ReasonMonthlyLimitReached,
		}
	}

	message := truncate(fmt.Sprintf("%s New %s submission (%s)", priorityGlyphs[sub.Priority], sub.FormID, sub.Priority), smsMaxLength)

	var lastErr error
	for _, to := range def.Fulfillment.SMSRecipients {
		if err := r.sms.Send(ctx, to, message); err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return failed(model.ChannelSMS, lastErr)
	}
	return model.ChannelResult{Channel: model.ChannelSMS, Status: model.ChannelStatusSent}
}

func (r *Router) sendWebhook(ctx context.Context, sub *model.Submission, def *model.FormDefinition) model.ChannelResult {
	if def.Fulfillment.WebhookURL == "" {
		return failed(model.ChannelWebhook, fmt.Errorf("webhook URL is not configured"))
	}
	payload := webhookPayload{
		FormID:       sub.FormID,
		SubmissionID: sub.SubmissionID,
		Priority:     sub.Priority,
		Timestamp:    sub.CreatedAt,
		Data:         sub.FormData,
	}
	if err := r.webhook.Send(ctx, def.Fulfillment.WebhookURL, payload); err != nil {
		return failed(model.ChannelWebhook, err)
	}
	return model.ChannelResult{Channel: model.ChannelWebhook, Status: model.ChannelStatusSent}
}

func (r *Router) invoke(ctx context.Context, sub *model.Submission, def *model.FormDefinition) model.ChannelResult {
	if def.Fulfillment.InvokeFunction == "" {
		return failed(model.ChannelInvoke, fmt.Errorf("invoke function name is not configured"))
	}
	payload := webhookPayload{
		FormID:       sub.FormID,
		SubmissionID: sub.SubmissionID,
		Priority:     sub.Priority,
		Timestamp:    sub.CreatedAt,
		Data:         sub.FormData,
	}
	if err := r.invoker.Invoke(ctx, def.Fulfillment.InvokeFunction, payload); err != nil {
		return failed(model.ChannelInvoke, err)
	}
	return model.ChannelResult{Channel: model.ChannelInvoke, Status: model.ChannelStatusInvoked}
}

func (r *Router) archive(ctx context.Context, sub *model.Submission, def *model.FormDefinition) model.ChannelResult {
	if def.Fulfillment.ArchiveBucket == "" {
		return failed(model.ChannelArchive, fmt.Errorf("archive bucket is not configured"))
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return failed(model.ChannelArchive, err)
	}
	key := ArchiveKey(sub)
	if err := r.archiver.Put(ctx, def.Fulfillment.ArchiveBucket, key, data); err != nil {
		return failed(model.ChannelArchive, err)
	}
	return model.ChannelResult{Channel: model.ChannelArchive, Status: model.ChannelStatusStored}
}

// sendConfirmationEmail thanks the submitter when they supplied an address
// and the tenant has not disabled it. Failures only reach the log.
func (r *Router) sendConfirmationEmail(ctx context.Context, sub *model.Submission, def *model.FormDefinition, cfg *model.TenantConfig) {
	if cfg.DisableConfirmationEmail {
		return
	}
	address := submitterEmail(sub.FormData)
	if address == "" {
		return
	}

	subject := fmt.Sprintf("Thank you for your %s submission", def.Title)
	body := fmt.Sprintf("We received your %s submission and will be in touch soon.", def.Title)
	if err := r.email.Send(ctx, []string{address}, subject, body); err != nil {
		r.logger.Warn("confirmation email failed",
			zap.String("submission_id", sub.SubmissionID),
			zap.Error(err),
		)
	}
}

// ArchiveKey is the deterministic blob key for a submission.
func ArchiveKey(sub *model.Submission) string {
	return fmt.Sprintf("submissions/%s/%s/%s_%s.json",
		sub.TenantID, sub.FormID, sub.FormID, sub.CreatedAt.UTC().Format("20060102T150405Z"))
}

func submitterEmail(formData map[string]string) string {
	for _, field := range confirmationEmailFields {
		if v := strings.TrimSpace(formData[field]); v != "" {
			return v
		}
	}
	return ""
}

func formatSubmissionBody(sub *model.Submission, def *model.FormDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Form: %s (%s)\nPriority: %s\nSubmitted: %s\n\n",
		def.Title, sub.FormID, sub.Priority, sub.CreatedAt.Format(time.RFC3339))

	keys := make([]string, 0, len(sub.FormData))
	for k := range sub.FormData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, sub.FormData[k])
	}
	return b.String()
}

func failed(channel string, err error) model.ChannelResult {
	return model.ChannelResult{Channel: channel, Status: model.ChannelStatusFailed, Error: err.Error()}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
