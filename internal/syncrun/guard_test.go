package syncrun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryGuard_Boundary(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard(2)

	// used == max-1 → allow, counter becomes max
	assert.NoError(t, g.TryConsume(ctx, "u1"))
	assert.NoError(t, g.TryConsume(ctx, "u1"))
	assert.Equal(t, 2, g.Used("u1"))

	// used == max → deny
	assert.ErrorIs(t, g.TryConsume(ctx, "u1"), ErrQuotaExceeded)
	assert.Equal(t, 2, g.Used("u1"))
}

func TestMemoryGuard_PerUserCounters(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard(1)

	assert.NoError(t, g.TryConsume(ctx, "u1"))
	assert.NoError(t, g.TryConsume(ctx, "u2"))
	assert.ErrorIs(t, g.TryConsume(ctx, "u1"), ErrQuotaExceeded)
}

func TestMemoryGuard_ResetIsExplicit(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard(1)

	assert.NoError(t, g.TryConsume(ctx, "u1"))
	assert.ErrorIs(t, g.TryConsume(ctx, "u1"), ErrQuotaExceeded)

	assert.NoError(t, g.Reset(ctx, "u1"))
	assert.NoError(t, g.TryConsume(ctx, "u1"))
}

type fakeQuotaStore struct {
	max, used int
	resets    int
}

func (f *fakeQuotaStore) ConsumeTestRequest(_ context.Context, _ string) (bool, error) {
	if f.used >= f.max {
		return false, nil
	}
	f.used++
	return true, nil
}

func (f *fakeQuotaStore) ResetTestRequests(_ context.Context, _ string) error {
	f.resets++
	f.used = 0
	return nil
}

func TestStoreGuard(t *testing.T) {
	ctx := context.Background()
	store := &fakeQuotaStore{max: 1}
	g := NewStoreGuard(store)

	assert.NoError(t, g.TryConsume(ctx, "u1"))
	assert.ErrorIs(t, g.TryConsume(ctx, "u1"), ErrQuotaExceeded)

	assert.NoError(t, g.Reset(ctx, "u1"))
	assert.Equal(t, 1, store.resets)
	assert.NoError(t, g.TryConsume(ctx, "u1"))
}
