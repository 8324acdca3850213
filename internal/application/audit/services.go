package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bryanwahyu/regtech-advisor/internal/application"
	domain "github.com/bryanwahyu/regtech-advisor/internal/domain/audit"
)

// Logger appends pipeline steps to a Store under a per-request reference.
// Each reference is written by the request that created it only.
type Logger struct {
	Store domain.Store
	Clock application.Clock
}

func NewLogger(store domain.Store, clock application.Clock) *Logger {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Logger{Store: store, Clock: clock}
}

// NewRef generates an opaque audit reference (UUID v4).
func (l *Logger) NewRef() string {
	return uuid.NewString()
}

// Log records one step.
func (l *Logger) Log(ctx context.Context, ref, step, userID string, data map[string]any) error {
	e := domain.Event{
		AuditRef:  ref,
		Step:      step,
		Data:      data,
		UserID:    userID,
		Timestamp: l.Clock.Now().UTC(),
	}
	if err := l.Store.Append(ctx, ref, e); err != nil {
		return fmt.Errorf("audit append %s/%s: %w", ref, step, err)
	}
	return nil
}

// Trail returns every step recorded for ref, oldest first.
func (l *Logger) Trail(ctx context.Context, ref string) ([]domain.Event, error) {
	events, err := l.Store.List(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("audit list %s: %w", ref, err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}
