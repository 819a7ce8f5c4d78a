package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"portraitbot/internal/domain"
	"portraitbot/internal/infra"
)

// TrainingOrchestrator turns an uploaded dataset into a LoRA weights URL.
type TrainingOrchestrator struct {
	poller  *Poller
	app     string
	timeout time.Duration
	logger  infra.Logger
}

func NewTrainingOrchestrator(p *Poller, app string, timeout time.Duration, logger *infra.Logger) *TrainingOrchestrator {
	return &TrainingOrchestrator{poller: p, app: app, timeout: timeout, logger: infra.LoggerOrDiscard(logger)}
}

// Start submits a training job for datasetRef.
func (o *TrainingOrchestrator) Start(ctx context.Context, userID int64, datasetRef string) (*Handle[string], error) {
	if strings.TrimSpace(datasetRef) == "" {
		return nil, &domain.RemoteJobError{Kind: domain.JobKindTrain, Err: errors.New("dataset reference is required")}
	}
	h, err := Submit(ctx, o.poller, Definition[domain.TrainingOutput, string]{
		Kind:    domain.JobKindTrain,
		App:     o.app,
		Input:   domain.NewTrainingInput(datasetRef),
		Timeout: o.timeout,
		Extract: func(out domain.TrainingOutput) (string, error) {
			return requireURL("diffusers_lora_file", out.DiffusersLoraFile.URL)
		},
	})
	if err != nil {
		return nil, err
	}
	o.logger.Info().Int64("user_id", userID).Str("request_id", h.RequestID()).Msg("training submitted")
	return h, nil
}

// Train runs a training job to completion, logging its progress.
func (o *TrainingOrchestrator) Train(ctx context.Context, userID int64, datasetRef string) (string, error) {
	h, err := o.Start(ctx, userID, datasetRef)
	if err != nil {
		return "", err
	}
	return drain(ctx, h, o.logger.With().Str("job_kind", string(domain.JobKindTrain)).Int64("user_id", userID).Str("request_id", h.RequestID()).Logger())
}

// GenerationOrchestrator produces one image from a prompt and trained weights.
type GenerationOrchestrator struct {
	poller  *Poller
	app     string
	timeout time.Duration
	logger  infra.Logger
}

func NewGenerationOrchestrator(p *Poller, app string, timeout time.Duration, logger *infra.Logger) *GenerationOrchestrator {
	return &GenerationOrchestrator{poller: p, app: app, timeout: timeout, logger: infra.LoggerOrDiscard(logger)}
}

// Start submits a generation job.
func (o *GenerationOrchestrator) Start(ctx context.Context, prompt, modelRef string) (*Handle[string], error) {
	if strings.TrimSpace(prompt) == "" || strings.TrimSpace(modelRef) == "" {
		return nil, &domain.RemoteJobError{Kind: domain.JobKindGenerate, Err: errors.New("prompt and model reference are required")}
	}
	return Submit(ctx, o.poller, Definition[domain.GenerationOutput, string]{
		Kind:    domain.JobKindGenerate,
		App:     o.app,
		Input:   domain.GenerationInput{Prompt: prompt, Loras: []domain.LoraWeight{{Path: modelRef, Scale: 1}}},
		Timeout: o.timeout,
		Extract: func(out domain.GenerationOutput) (string, error) {
			if len(out.Images) == 0 {
				return "", ErrEmptyResult
			}
			return requireURL("images[0]", out.Images[0].URL)
		},
	})
}

// Generate runs a generation job to completion.
func (o *GenerationOrchestrator) Generate(ctx context.Context, prompt, modelRef string) (string, error) {
	h, err := o.Start(ctx, prompt, modelRef)
	if err != nil {
		return "", err
	}
	return drain(ctx, h, o.logger.With().Str("job_kind", string(domain.JobKindGenerate)).Str("request_id", h.RequestID()).Logger())
}

func drain(ctx context.Context, h *Handle[string], log infra.Logger) (string, error) {
	for line := range h.Logs() {
		log.Info().Str("remote_ts", line.Timestamp).Msg(line.Message)
	}
	return h.Wait(ctx)
}
