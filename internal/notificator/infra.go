package notificator

import (
	"context"
	"errors"
	"fmt"
)

type Infra struct {
	sender Sender
	admins []int64
}

// NewInfra sends admin alerts to every chat in admins; an empty list disables them.
func NewInfra(sender Sender, admins []int64) *Infra {
	return &Infra{sender: sender, admins: admins}
}

func (i *Infra) Notify(ctx context.Context, err error, details string) error {
	if len(i.admins) == 0 {
		return nil
	}

	text := fmt.Sprintf(
		"❗ Error in kisan_voice\n\nError: %v\n\nDetails: %s",
		err,
		details,
	)

	var errs []error
	for _, chatID := range i.admins {
		if sendErr := i.sender.SendText(ctx, chatID, text); sendErr != nil {
			errs = append(errs, fmt.Errorf("admin %d: %w", chatID, sendErr))
		}
	}
	return errors.Join(errs...)
}

func (i *Infra) UserNotify(ctx context.Context, chatID int64, text string) error {
	return i.sender.SendText(ctx, chatID, text)
}
