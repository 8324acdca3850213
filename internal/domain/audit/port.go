package audit

import "context"

// Store is an append-only event log keyed by audit reference.
// List returns events in append order, or an empty slice for an unknown ref.
type Store interface {
	Append(ctx context.Context, ref string, e Event) error
	List(ctx context.Context, ref string) ([]Event, error)
}
