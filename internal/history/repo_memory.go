package history

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores runs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	byClient map[string][]Run
	// perClient caps how many runs are kept for each client.
	perClient int
}

// NewMemoryRepo constructs a MemoryRepo keeping at most perClient runs per client.
func NewMemoryRepo(perClient int) *MemoryRepo {
	if perClient <= 0 {
		perClient = 500
	}
	return &MemoryRepo{
		byClient:  make(map[string][]Run),
		perClient: perClient,
	}
}

// Create stores the run.
func (r *MemoryRepo) Create(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	runs := append(r.byClient[run.ClientID], run)
	if len(runs) > r.perClient {
		runs = append([]Run(nil), runs[len(runs)-r.perClient:]...)
	}
	r.byClient[run.ClientID] = runs
	return nil
}

// ListByClient returns runs for a client, newest first.
func (r *MemoryRepo) ListByClient(ctx context.Context, clientID string, limit int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	runs := append([]Run(nil), r.byClient[clientID]...)
	r.mu.RUnlock()

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
