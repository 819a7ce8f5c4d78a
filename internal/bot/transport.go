package bot

import "context"

// Update is one inbound chat event reduced to what the bot reacts to.
type Update struct {
	UserID  int64
	ChatID  int64
	Command string
	Text    string
	// PhotoFileID is the file id of the largest size of an attached photo.
	PhotoFileID string
}

// Transport delivers messages to a chat and resolves uploaded files.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendKeyboard(ctx context.Context, chatID int64, text string, rows [][]string) error
	SendPhoto(ctx context.Context, chatID int64, imageRef string) error
	// FileURL returns a URL the archive builder can download the file from.
	FileURL(ctx context.Context, fileID string) (string, error)
}
