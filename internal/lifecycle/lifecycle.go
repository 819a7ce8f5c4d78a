// Package lifecycle sequences photo collection, training and generation
// against the durable user record.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"portraitbot/internal/collector"
	"portraitbot/internal/domain"
	"portraitbot/internal/infra"
)

// Packager builds and uploads the dataset archive for a batch.
type Packager interface {
	Package(ctx context.Context, owner string, batch []string) (string, error)
}

// Trainer runs a training job and returns the trained weights reference.
type Trainer interface {
	Train(ctx context.Context, userID int64, datasetRef string) (string, error)
}

// PromptResolver maps user text to a generation prompt.
type PromptResolver interface {
	Resolve(ctx context.Context, text string) (string, error)
}

// Generator runs a generation job and returns the image reference.
type Generator interface {
	Generate(ctx context.Context, prompt, modelRef string) (string, error)
}

// Submission is the outcome of SubmitImage. Batch is set exactly once per
// collection round: on the submission that filled it and moved the user to
// training. The caller must pass it to Onboard.
type Submission struct {
	Accepted bool
	Count    int
	Batch    []string
}

// Deps bundles the collaborators of Service.
type Deps struct {
	Users     domain.UserRepository
	Collector *collector.Collector
	Packager  Packager
	Trainer   Trainer
	Resolver  PromptResolver
	Generator Generator
	Logger    *infra.Logger
}

// Service is the per-user state machine. Status changes go through the
// repository's compare-and-set transitions; image intake for one user is
// additionally serialised so the append and threshold hand-off are atomic.
type Service struct {
	users     domain.UserRepository
	collector *collector.Collector
	packager  Packager
	trainer   Trainer
	resolver  PromptResolver
	generator Generator
	logger    infra.Logger
	locks     *userLocks
}

func New(deps Deps) *Service {
	return &Service{
		users:     deps.Users,
		collector: deps.Collector,
		packager:  deps.Packager,
		trainer:   deps.Trainer,
		resolver:  deps.Resolver,
		generator: deps.Generator,
		logger:    infra.LoggerOrDiscard(deps.Logger),
		locks:     newUserLocks(),
	}
}

// Start registers the user if needed and returns the current record.
func (s *Service) Start(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.Ensure(ctx, userID)
}

// User returns the stored record.
func (s *Service) User(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// PendingCount returns the number of collected but not yet packaged images.
func (s *Service) PendingCount(userID int64) int {
	return s.collector.Count(userID)
}

// SubmitImage collects one photo. When the batch fills up the user moves to
// training and the detached batch is returned for Onboard.
func (s *Service) SubmitImage(ctx context.Context, userID int64, imageRef string) (Submission, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	receipt, err := s.collector.Submit(ctx, userID, imageRef)
	if err != nil {
		return Submission{Count: receipt.Count}, err
	}
	sub := Submission{Accepted: receipt.Accepted, Count: receipt.Count}
	if !receipt.Full() {
		return sub, nil
	}

	batch := s.collector.Take(userID)
	if _, err := s.users.Transition(ctx, userID, domain.Transition{From: domain.StatusCollecting, To: domain.StatusTraining}); err != nil {
		// The batch is gone either way; the user resubmits from scratch.
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("start training transition failed")
		return sub, err
	}
	sub.Batch = batch
	s.logger.Info().Int64("user_id", userID).Int("images", len(batch)).Msg("batch complete, training started")
	return sub, nil
}

// Onboard packages the batch, trains the model and records both references
// in the ready transition. On failure the user returns to collecting.
func (s *Service) Onboard(ctx context.Context, userID int64, batch []string) (string, error) {
	log := s.logger.With().Int64("user_id", userID).Logger()
	start := time.Now()

	datasetRef, err := s.packager.Package(ctx, strconv.FormatInt(userID, 10), batch)
	if err != nil {
		s.revertTraining(ctx, userID, "package", err)
		return "", err
	}
	log.Info().Str("dataset_ref", datasetRef).Msg("dataset uploaded")

	modelRef, err := s.trainer.Train(ctx, userID, datasetRef)
	if err != nil {
		s.revertTraining(ctx, userID, "train", err)
		return "", err
	}

	if _, err := s.users.Transition(ctx, userID, domain.Transition{
		From:       domain.StatusTraining,
		To:         domain.StatusReady,
		DatasetRef: datasetRef,
		ModelRef:   modelRef,
	}); err != nil {
		log.Error().Err(err).Str("model_ref", modelRef).Msg("record trained model")
		return "", fmt.Errorf("record trained model: %w", err)
	}
	log.Info().Str("model_ref", modelRef).Dur("took", time.Since(start)).Msg("model ready")
	return modelRef, nil
}

func (s *Service) revertTraining(ctx context.Context, userID int64, stage string, cause error) {
	log := s.logger.With().Int64("user_id", userID).Str("stage", stage).Logger()
	log.Error().Err(cause).Msg("onboarding failed")

	// The revert must land even when the onboarding context was cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	_, err := s.users.Transition(ctx, userID, domain.Transition{From: domain.StatusTraining, To: domain.StatusCollecting})
	if err != nil && !errors.Is(err, domain.ErrStateConflict) {
		log.Error().Err(err).Msg("revert to collecting failed")
	}
}

// Resolve maps text from a ready user to a prompt. Text from any other
// user is unrecognised.
func (s *Service) Resolve(ctx context.Context, userID int64, text string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.HasModel() {
		return "", domain.ErrUnrecognizedInput
	}
	return s.resolver.Resolve(ctx, text)
}

// Generate produces one image for a ready user. The outcome never changes
// the user's status.
func (s *Service) Generate(ctx context.Context, userID int64, prompt string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.HasModel() {
		return "", domain.Conflict("generate", user.Status)
	}
	imageRef, err := s.generator.Generate(ctx, prompt, user.ModelRef)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("generation failed")
		return "", err
	}
	return imageRef, nil
}

// RecoverInterrupted returns users stuck in training by a restart to
// collecting. Remote jobs are not resumed.
func (s *Service) RecoverInterrupted(ctx context.Context) ([]int64, error) {
	ids, err := s.users.ResetStatus(ctx, domain.StatusTraining, domain.StatusCollecting)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.collector.Clear(id)
	}
	if len(ids) > 0 {
		s.logger.Warn().Ints64("user_ids", ids).Msg("interrupted trainings reset to collecting")
	}
	return ids, nil
}

// Reset returns the user to new, dropping references and pending images.
func (s *Service) Reset(ctx context.Context, userID int64) (*domain.User, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.collector.Clear(userID)
	if user.Status == domain.StatusNew {
		return user, nil
	}
	updated, err := s.users.Transition(ctx, userID, domain.Transition{From: user.Status, To: domain.StatusNew, ClearRefs: true})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", userID).Str("from", string(user.Status)).Msg("user reset")
	return updated, nil
}
