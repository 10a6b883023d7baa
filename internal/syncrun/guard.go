package syncrun

import (
	"context"
	"errors"
	"sync"
)

// ErrQuotaExceeded denies a sandbox run before any step executes
var ErrQuotaExceeded = errors.New("quota_exceeded")

// Guard admits or denies sandbox-mode runs against a test-request ceiling.
// One consume covers one run regardless of how many steps it contains.
type Guard interface {
	// TryConsume performs an atomic check-then-increment: it returns
	// ErrQuotaExceeded when the counter has reached the ceiling, otherwise
	// it increments by exactly one and allows the run.
	TryConsume(ctx context.Context, userID string) error
	// Reset sets the counter back to zero. It is always explicit; the
	// counter never auto-resets on a timer.
	Reset(ctx context.Context, userID string) error
}

// QuotaStore is the persistence hook the store-backed guard needs. The
// check-then-increment must be a single atomic operation on the store side.
type QuotaStore interface {
	ConsumeTestRequest(ctx context.Context, userID string) (allowed bool, err error)
	ResetTestRequests(ctx context.Context, userID string) error
}

// StoreGuard enforces the quota against persisted sandbox settings
type StoreGuard struct {
	store QuotaStore
}

// NewStoreGuard creates a guard backed by persisted sandbox settings
func NewStoreGuard(store QuotaStore) *StoreGuard {
	return &StoreGuard{store: store}
}

func (g *StoreGuard) TryConsume(ctx context.Context, userID string) error {
	allowed, err := g.store.ConsumeTestRequest(ctx, userID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrQuotaExceeded
	}
	return nil
}

func (g *StoreGuard) Reset(ctx context.Context, userID string) error {
	return g.store.ResetTestRequests(ctx, userID)
}

// MemoryGuard keeps a session-scoped counter per user. It serves when no
// sandbox settings have been persisted yet, and as the guard in tests.
type MemoryGuard struct {
	max  int
	mu   sync.Mutex
	used map[string]int
}

// NewMemoryGuard creates an in-memory guard with the given ceiling
func NewMemoryGuard(max int) *MemoryGuard {
	return &MemoryGuard{max: max, used: make(map[string]int)}
}

func (g *MemoryGuard) TryConsume(_ context.Context, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.used[userID] >= g.max {
		return ErrQuotaExceeded
	}
	g.used[userID]++
	return nil
}

func (g *MemoryGuard) Reset(_ context.Context, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.used[userID] = 0
	return nil
}

// Used returns the current counter for a user
func (g *MemoryGuard) Used(userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used[userID]
}
