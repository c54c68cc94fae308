package notificator

import "context"

// Sender delivers a plain text message to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type Notificator interface {
	// Notify alerts the admin chats about a failure.
	Notify(ctx context.Context, err error, details string) error
	// UserNotify sends text to the user's chat.
	UserNotify(ctx context.Context, chatID int64, text string) error
}
