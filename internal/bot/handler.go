// Package bot connects chat updates to the user lifecycle.
package bot

import (
	"context"
	"errors"
	"sync"

	"portraitbot/internal/domain"
	"portraitbot/internal/infra"
	"portraitbot/internal/lifecycle"
)

// Lifecycle is the part of lifecycle.Service the handler drives.
type Lifecycle interface {
	Start(ctx context.Context, userID int64) (*domain.User, error)
	SubmitImage(ctx context.Context, userID int64, imageRef string) (lifecycle.Submission, error)
	Onboard(ctx context.Context, userID int64, batch []string) (string, error)
	Resolve(ctx context.Context, userID int64, text string) (string, error)
	Generate(ctx context.Context, userID int64, prompt string) (string, error)
}

// Handler turns updates into lifecycle calls and replies. Every failed
// update produces at most one reply and one log entry.
type Handler struct {
	life      Lifecycle
	transport Transport
	keyboard  [][]string
	logger    infra.Logger

	onboarding sync.WaitGroup
}

func NewHandler(life Lifecycle, transport Transport, keyboard [][]string, logger *infra.Logger) *Handler {
	return &Handler{life: life, transport: transport, keyboard: keyboard, logger: infra.LoggerOrDiscard(logger)}
}

// Handle processes one update. It is meant to be called from a Dispatcher
// worker so a user's updates never overlap.
func (h *Handler) Handle(ctx context.Context, u Update) {
	switch {
	case u.Command == "start":
		h.handleStart(ctx, u)
	case u.Command != "":
		// Other commands are not part of the flow.
	case u.PhotoFileID != "":
		h.handlePhoto(ctx, u)
	case u.Text != "":
		h.handleText(ctx, u)
	}
}

// WaitOnboarding blocks until background onboarding pipelines finish.
func (h *Handler) WaitOnboarding() {
	h.onboarding.Wait()
}

func (h *Handler) handleStart(ctx context.Context, u Update) {
	user, err := h.life.Start(ctx, u.UserID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", u.UserID).Msg("start failed")
		h.reply(ctx, u.ChatID, msgProcessingFailed)
		return
	}
	if user.HasModel() {
		h.replyKeyboard(ctx, u.ChatID, msgChooseStyle)
		return
	}
	h.reply(ctx, u.ChatID, msgSendPhotos)
}

func (h *Handler) handlePhoto(ctx context.Context, u Update) {
	ref, err := h.transport.FileURL(ctx, u.PhotoFileID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", u.UserID).Msg("resolve photo url")
		h.reply(ctx, u.ChatID, msgProcessingFailed)
		return
	}
	sub, err := h.life.SubmitImage(ctx, u.UserID, ref)
	if err != nil {
		h.replyError(ctx, u, err, msgProcessingFailed)
		return
	}
	if sub.Batch == nil {
		h.reply(ctx, u.ChatID, msgProgress(sub.Count))
		return
	}

	h.reply(ctx, u.ChatID, msgProcessing)
	// Training runs for many minutes; the training status already blocks
	// further photos, so the user's queue keeps moving meanwhile.
	h.onboarding.Add(1)
	go func() {
		defer h.onboarding.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error().Int64("user_id", u.UserID).Interface("panic", r).Msg("onboarding panicked")
				h.reply(ctx, u.ChatID, msgProcessingFailed)
			}
		}()
		if _, err := h.life.Onboard(ctx, u.UserID, sub.Batch); err != nil {
			h.reply(ctx, u.ChatID, msgProcessingFailed)
			return
		}
		h.replyKeyboard(ctx, u.ChatID, msgModelReady)
	}()
}

func (h *Handler) handleText(ctx context.Context, u Update) {
	prompt, err := h.life.Resolve(ctx, u.UserID, u.Text)
	if err != nil {
		h.replyError(ctx, u, err, msgGenerationFailed)
		return
	}
	h.reply(ctx, u.ChatID, msgGenerating)
	imageRef, err := h.life.Generate(ctx, u.UserID, prompt)
	if err != nil {
		h.replyError(ctx, u, err, msgGenerationFailed)
		return
	}
	if err := h.transport.SendPhoto(ctx, u.ChatID, imageRef); err != nil {
		h.logger.Error().Err(err).Int64("user_id", u.UserID).Msg("send photo")
	}
}

// replyError maps a lifecycle error to the single user-facing message.
func (h *Handler) replyError(ctx context.Context, u Update, err error, generic string) {
	log := h.logger.With().Int64("user_id", u.UserID).Logger()
	var conflict *domain.StateConflictError
	switch {
	case errors.Is(err, domain.ErrUnrecognizedInput):
		log.Debug().Msg("ignored unrecognized input")
	case errors.Is(err, domain.ErrNotFound):
		h.reply(ctx, u.ChatID, msgPleaseStart)
	case errors.Is(err, domain.ErrBatchFull):
		h.reply(ctx, u.ChatID, msgBatchFull)
	case errors.As(err, &conflict):
		log.Info().Str("op", conflict.Op).Str("status", string(conflict.Status)).Msg("rejected by status")
		switch conflict.Status {
		case domain.StatusReady:
			h.reply(ctx, u.ChatID, msgHasModel)
		case domain.StatusTraining:
			h.reply(ctx, u.ChatID, msgTraining)
		default:
			h.reply(ctx, u.ChatID, msgPleaseStart)
		}
	default:
		log.Error().Err(err).Msg("update failed")
		h.reply(ctx, u.ChatID, generic)
	}
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.transport.SendText(ctx, chatID, text); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}

func (h *Handler) replyKeyboard(ctx context.Context, chatID int64, text string) {
	if err := h.transport.SendKeyboard(ctx, chatID, text, h.keyboard); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send keyboard")
	}
}
