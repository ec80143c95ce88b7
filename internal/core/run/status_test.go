package run

import (
	"context"
	"sync"
	"testing"
	"time"

	"skincare-advisor/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(&config.RedisConfig{Enabled: false, StatusTTL: time.Minute})
	require.NoError(t, err)
	return store
}

func TestStoreLocalSetAndGet(t *testing.T) {
	store := localStore(t)
	defer store.Close()

	require.NoError(t, store.SetStage(context.Background(), "run-1", "scoring"))

	status, err := store.GetStatus(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", status.RunID)
	assert.Equal(t, "scoring", status.Stage)
	assert.False(t, status.UpdatedAt.IsZero())
}

func TestStoreLocalOverwritesStage(t *testing.T) {
	store := localStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SetStage(ctx, "run-1", "scoring"))
	require.NoError(t, store.SetStage(ctx, "run-1", "done"))

	status, err := store.GetStatus(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "done", status.Stage)
}

func TestStoreLocalUnknownRun(t *testing.T) {
	store := localStore(t)
	defer store.Close()

	_, err := store.GetStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStoreLocalConcurrentWrites(t *testing.T) {
	store := localStore(t)
	defer store.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.SetStage(ctx, "run-1", "scoring")
			_, _ = store.GetStatus(ctx, "run-1")
		}()
	}
	wg.Wait()

	status, err := store.GetStatus(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "scoring", status.Stage)
}
