package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"

	"crm-pipeline-api/internal/config"
	"crm-pipeline-api/internal/events"
	"crm-pipeline-api/internal/metrics"
)

// Delivery headers
const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderSignature = "X-Webhook-Signature"
	HeaderID        = "X-Webhook-Id"
)

// Dispatcher POSTs events to the configured subscriptions
type Dispatcher struct {
	subscriptions []config.WebhookSubscription
	httpClient    *http.Client
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewDispatcher creates a dispatcher for the active subscriptions in cfg
func NewDispatcher(cfg config.WebhooksConfig, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	active := make([]config.WebhookSubscription, 0, len(cfg.Subscriptions))
	for _, sub := range cfg.Subscriptions {
		if sub.Active && sub.URL != "" {
			active = append(active, sub)
		}
	}

	return &Dispatcher{
		subscriptions: active,
		httpClient:    &http.Client{Timeout: timeout},
		metrics:       m,
		logger:        logger,
	}
}

// Enabled reports whether any subscription is active
func (d *Dispatcher) Enabled() bool {
	return len(d.subscriptions) > 0
}

// Publish delivers e to every matching subscription.
// It implements events.Publisher.
func (d *Dispatcher) Publish(ctx context.Context, e events.Event) error {
	return d.Deliver(ctx, e, nil)
}

// Deliver sends e to the matching subscriptions, only those named in
// targets when it is not empty. Failures are returned as *events.TargetsError
// naming the subscriptions to retry, so receivers that already got the
// event are not sent it again.
func (d *Dispatcher) Deliver(ctx context.Context, e events.Event, targets []string) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var (
		failed []string
		errs   []error
	)
	for _, sub := range d.subscriptions {
		if !Subscribed(sub, e.Type) {
			continue
		}
		if len(targets) > 0 && !slices.Contains(targets, sub.Name) {
			continue
		}
		if err := d.deliver(ctx, sub, e, body); err != nil {
			d.logger.Warn("Webhook delivery failed",
				zap.String("subscription", sub.Name),
				zap.String("event_type", string(e.Type)),
				zap.Error(err),
			)
			failed = append(failed, sub.Name)
			errs = append(errs, fmt.Errorf("%s: %w", sub.Name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &events.TargetsError{Failed: failed, Err: errors.Join(errs...)}
}

func (d *Dispatcher) deliver(ctx context.Context, sub config.WebhookSubscription, e events.Event, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, string(e.Type))
	req.Header.Set(HeaderID, e.ID.String())
	if sub.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(sub.Secret, body))
	}

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		d.metrics.RecordExternalAPICall("webhook:"+sub.Name, http.MethodPost, 0, duration, err)
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	d.metrics.RecordExternalAPICall("webhook:"+sub.Name, http.MethodPost, resp.StatusCode, duration, nil)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Subscribed reports whether sub wants events of type t.
// An empty event list or "*" subscribes to everything.
func Subscribed(sub config.WebhookSubscription, t events.Type) bool {
	if len(sub.Events) == 0 {
		return true
	}
	for _, want := range sub.Events {
		if want == "*" || want == string(t) {
			return true
		}
	}
	return false
}

// Sign returns the hex HMAC-SHA256 of body under secret
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign
func Verify(secret string, body []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
