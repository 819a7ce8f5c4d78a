package repo

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portraitbot/internal/domain"
)

func TestMemoryRepositoryCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	_, err := repo.Ensure(ctx, 1)
	require.NoError(t, err)

	_, err = repo.Transition(ctx, 1, domain.Transition{From: domain.StatusNew, To: domain.StatusCollecting})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Transition(ctx, 1, domain.Transition{From: domain.StatusCollecting, To: domain.StatusTraining})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrStateConflict)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, winners)

	u, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, domain.StatusTraining, u.Status)
}

func TestMemoryRepositoryReadyCarriesReferences(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	_, _ = repo.Ensure(ctx, 5)
	_, _ = repo.Transition(ctx, 5, domain.Transition{From: domain.StatusNew, To: domain.StatusCollecting})
	_, _ = repo.Transition(ctx, 5, domain.Transition{From: domain.StatusCollecting, To: domain.StatusTraining})

	u, err := repo.Transition(ctx, 5, domain.Transition{From: domain.StatusTraining, To: domain.StatusReady, DatasetRef: "ds", ModelRef: "lora"})
	require.NoError(t, err)
	require.Equal(t, "lora", u.ModelRef)
	require.Equal(t, "ds", u.DatasetRef)

	u, err = repo.Transition(ctx, 5, domain.Transition{From: domain.StatusReady, To: domain.StatusNew, ClearRefs: true})
	require.NoError(t, err)
	require.Empty(t, u.ModelRef)
	require.Empty(t, u.DatasetRef)
}

func TestMemoryRepositoryResetStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	for _, id := range []int64{3, 1, 2} {
		_, _ = repo.Ensure(ctx, id)
		_, _ = repo.Transition(ctx, id, domain.Transition{From: domain.StatusNew, To: domain.StatusCollecting})
	}
	_, _ = repo.Transition(ctx, 1, domain.Transition{From: domain.StatusCollecting, To: domain.StatusTraining})
	_, _ = repo.Transition(ctx, 3, domain.Transition{From: domain.StatusCollecting, To: domain.StatusTraining})

	ids, err := repo.ResetStatus(ctx, domain.StatusTraining, domain.StatusCollecting)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3}, ids)

	u, err := repo.GetByID(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCollecting, u.Status)
}
