package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/regtech-advisor/internal/domain/alert"
)

// Log writes alerts to the structured log.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Notify(_ context.Context, a alert.Alert) error {
	l.Logger.Error("compliance alert",
		zap.String("severity", string(a.Severity)),
		zap.String("audit_ref", a.AuditRef),
		zap.String("framework_id", a.FrameworkID),
		zap.Strings("issues", a.Issues),
		zap.Time("raised_at", a.RaisedAt),
	)
	return nil
}

// Webhook POSTs alerts as JSON to an alerting endpoint (mail relay, chat hook).
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (w *Webhook) Notify(ctx context.Context, a alert.Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []alert.Notifier

func (m Multi) Notify(ctx context.Context, a alert.Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
