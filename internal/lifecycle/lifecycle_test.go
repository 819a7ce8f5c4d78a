package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portraitbot/internal/adapter/repo"
	"portraitbot/internal/collector"
	"portraitbot/internal/domain"
)

type fakePackager struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (f *fakePackager) Package(_ context.Context, owner string, batch []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.batches = append(f.batches, append([]string(nil), batch...))
	return fmt.Sprintf("https://store/datasets/%s/%d.zip", owner, len(f.batches)), nil
}

type fakeTrainer struct {
	mu      sync.Mutex
	calls   int
	err     error
	lastRef string
}

func (f *fakeTrainer) Train(_ context.Context, userID int64, datasetRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastRef = datasetRef
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("https://weights/%d.safetensors", userID), nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, text string) (string, error) {
	return "prompt for " + text + " [trigger]", nil
}

type fakeGenerator struct {
	err      error
	prompt   string
	modelRef string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt, modelRef string) (string, error) {
	f.prompt, f.modelRef = prompt, modelRef
	if f.err != nil {
		return "", f.err
	}
	return "https://images/out.png", nil
}

type harness struct {
	svc       *Service
	users     *repo.MemoryUserRepository
	packager  *fakePackager
	trainer   *fakeTrainer
	generator *fakeGenerator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	users := repo.NewMemoryUserRepository()
	h := &harness{
		users:     users,
		packager:  &fakePackager{},
		trainer:   &fakeTrainer{},
		generator: &fakeGenerator{},
	}
	h.svc = New(Deps{
		Users:     users,
		Collector: collector.New(users, nil),
		Packager:  h.packager,
		Trainer:   h.trainer,
		Resolver:  fakeResolver{},
		Generator: h.generator,
	})
	return h
}

func (h *harness) status(t *testing.T, id int64) domain.Status {
	t.Helper()
	u, err := h.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u.Status
}

// fill submits a full batch and returns the detached one.
func (h *harness) fill(t *testing.T, id int64) []string {
	t.Helper()
	var batch []string
	for i := 0; i < domain.BatchSize; i++ {
		sub, err := h.svc.SubmitImage(context.Background(), id, fmt.Sprintf("https://tg/%d/%d.jpg", id, i))
		require.NoError(t, err)
		require.Equal(t, i+1, sub.Count)
		if i < domain.BatchSize-1 {
			require.Nil(t, sub.Batch)
		} else {
			batch = sub.Batch
		}
	}
	return batch
}

func TestOnboardingHappyPath(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u, err := h.svc.Start(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, domain.StatusNew, u.Status)

	batch := h.fill(t, 1)
	require.Len(t, batch, domain.BatchSize)
	require.Equal(t, "https://tg/1/0.jpg", batch[0])
	require.Equal(t, "https://tg/1/9.jpg", batch[9])
	require.Equal(t, domain.StatusTraining, h.status(t, 1))
	require.Zero(t, h.svc.PendingCount(1))

	modelRef, err := h.svc.Onboard(ctx, 1, batch)
	require.NoError(t, err)
	require.Equal(t, "https://weights/1.safetensors", modelRef)

	u, err = h.svc.User(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReady, u.Status)
	require.Equal(t, modelRef, u.ModelRef)
	require.Equal(t, "https://store/datasets/1/1.zip", u.DatasetRef)
	require.Equal(t, batch, h.packager.batches[0])

	prompt, err := h.svc.Resolve(ctx, 1, "Клоун")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		img, err := h.svc.Generate(ctx, 1, prompt)
		require.NoError(t, err)
		require.Equal(t, "https://images/out.png", img)
	}
	require.Equal(t, modelRef, h.generator.modelRef)
	require.Equal(t, domain.StatusReady, h.status(t, 1))
}

func TestImagesRejectedWhileTrainingAndReady(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, _ = h.svc.Start(ctx, 2)
	batch := h.fill(t, 2)

	_, err := h.svc.SubmitImage(ctx, 2, "late.jpg")
	var conflict *domain.StateConflictError
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, domain.StatusTraining, conflict.Status)
	require.Zero(t, h.svc.PendingCount(2))

	_, err = h.svc.Onboard(ctx, 2, batch)
	require.NoError(t, err)

	_, err = h.svc.SubmitImage(ctx, 2, "after.jpg")
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, domain.StatusReady, conflict.Status)
	require.Equal(t, 1, h.trainer.calls)
}

func TestPackagingFailureRevertsToCollecting(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, _ = h.svc.Start(ctx, 3)
	h.packager.err = fmt.Errorf("fetch photo3.jpg: %w", domain.ErrTransientIO)

	batch := h.fill(t, 3)
	_, err := h.svc.Onboard(ctx, 3, batch)
	require.ErrorIs(t, err, domain.ErrTransientIO)
	require.Equal(t, domain.StatusCollecting, h.status(t, 3))
	require.Zero(t, h.svc.PendingCount(3))
	require.Zero(t, h.trainer.calls)

	h.packager.err = nil
	batch = h.fill(t, 3)
	_, err = h.svc.Onboard(ctx, 3, batch)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReady, h.status(t, 3))
}

func TestTrainingFailureRevertsToCollecting(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, _ = h.svc.Start(ctx, 4)
	h.trainer.err = &domain.RemoteJobError{Kind: domain.JobKindTrain, RequestID: "req-9", Err: errors.New("failed")}

	_, err := h.svc.Onboard(ctx, 4, h.fill(t, 4))
	require.ErrorIs(t, err, domain.ErrRemoteJob)
	require.Equal(t, domain.StatusCollecting, h.status(t, 4))

	u, err := h.svc.User(ctx, 4)
	require.NoError(t, err)
	require.Empty(t, u.ModelRef)
	require.Empty(t, u.DatasetRef)
}

func TestConcurrentSubmissionsTriggerOneTraining(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, _ = h.svc.Start(ctx, 5)

	const senders = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		batches [][]string
		taken   int
	)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub, err := h.svc.SubmitImage(ctx, 5, fmt.Sprintf("img-%d", i))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrStateConflict)
				return
			}
			taken++
			if sub.Batch != nil {
				batches = append(batches, sub.Batch)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, batches, 1)
	require.Len(t, batches[0], domain.BatchSize)
	require.Equal(t, domain.BatchSize, taken)
	require.Equal(t, domain.StatusTraining, h.status(t, 5))
}

func TestResolveRequiresReady(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.Resolve(ctx, 6, "hello")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, _ = h.svc.Start(ctx, 6)
	_, err = h.svc.Resolve(ctx, 6, "hello")
	require.ErrorIs(t, err, domain.ErrUnrecognizedInput)

	_, err = h.svc.Generate(ctx, 6, "prompt")
	require.ErrorIs(t, err, domain.ErrStateConflict)
}

func TestGenerationFailureKeepsReady(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, _ = h.svc.Start(ctx, 7)
	_, err := h.svc.Onboard(ctx, 7, h.fill(t, 7))
	require.NoError(t, err)

	h.generator.err = &domain.RemoteJobError{Kind: domain.JobKindGenerate, Err: errors.New("nsfw")}
	_, err = h.svc.Generate(ctx, 7, "prompt")
	require.ErrorIs(t, err, domain.ErrRemoteJob)
	require.Equal(t, domain.StatusReady, h.status(t, 7))
}

func TestRecoverInterrupted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, _ = h.svc.Start(ctx, 8)
	h.fill(t, 8)

	ids, err := h.svc.RecoverInterrupted(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{8}, ids)
	require.Equal(t, domain.StatusCollecting, h.status(t, 8))
}

func TestResetFromReady(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, _ = h.svc.Start(ctx, 9)
	_, err := h.svc.Onboard(ctx, 9, h.fill(t, 9))
	require.NoError(t, err)

	u, err := h.svc.Reset(ctx, 9)
	require.NoError(t, err)
	require.Equal(t, domain.StatusNew, u.Status)
	require.Empty(t, u.ModelRef)

	_, err = h.svc.SubmitImage(ctx, 9, "again.jpg")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCollecting, h.status(t, 9))
}
