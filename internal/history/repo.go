package history

import "context"

// Repo defines persistence operations for flow runs.
type Repo interface {
	Create(ctx context.Context, run Run) error
	// ListByClient returns runs for a client, newest first.
	ListByClient(ctx context.Context, clientID string, limit int) ([]Run, error)
}
