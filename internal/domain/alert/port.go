package alert

import "context"

// Notifier delivers alerts (email relay, chat webhook, log sink).
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}
