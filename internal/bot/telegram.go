package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"portraitbot/internal/infra"
)

// Telegram adapts the Bot API long-polling client to Transport.
type Telegram struct {
	api    *tgbotapi.BotAPI
	logger infra.Logger
}

func NewTelegram(token string, debug bool, logger *infra.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	api.Debug = debug
	t := &Telegram{api: api, logger: infra.LoggerOrDiscard(logger)}
	t.logger.Info().Str("username", api.Self.UserName).Msg("telegram: authorized")
	return t, nil
}

// Run long-polls for updates and passes them to dispatch until ctx ends.
func (t *Telegram) Run(ctx context.Context, dispatch func(context.Context, Update)) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := t.api.GetUpdatesChan(cfg)
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-updates:
			if !ok {
				return nil
			}
			if u, ok := convertUpdate(raw); ok {
				dispatch(ctx, u)
			}
		}
	}
}

func convertUpdate(raw tgbotapi.Update) (Update, bool) {
	msg := raw.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return Update{}, false
	}
	u := Update{UserID: msg.From.ID, ChatID: msg.Chat.ID}
	switch {
	case msg.IsCommand():
		u.Command = msg.Command()
	case len(msg.Photo) > 0:
		u.PhotoFileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Text != "":
		u.Text = msg.Text
	default:
		return Update{}, false
	}
	return u, true
}

func (t *Telegram) SendText(_ context.Context, chatID int64, text string) error {
	_, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (t *Telegram) SendKeyboard(_ context.Context, chatID int64, text string, rows [][]string) error {
	buttons := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		line := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			line = append(line, tgbotapi.NewKeyboardButton(label))
		}
		buttons = append(buttons, tgbotapi.NewKeyboardButtonRow(line...))
	}
	keyboard := tgbotapi.NewReplyKeyboard(buttons...)
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := t.api.Send(msg)
	return err
}

func (t *Telegram) SendPhoto(_ context.Context, chatID int64, imageRef string) error {
	_, err := t.api.Send(tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(imageRef)))
	return err
}

func (t *Telegram) FileURL(_ context.Context, fileID string) (string, error) {
	return t.api.GetFileDirectURL(fileID)
}

var _ Transport = (*Telegram)(nil)
