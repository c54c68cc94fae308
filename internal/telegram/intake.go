package telegram

import (
	"context"
	"strconv"

	"github.com/Vovarama1992/kisan_voice/internal/dedup"
	"github.com/Vovarama1992/kisan_voice/internal/worker"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Status is the acknowledgement returned for one update.
type Status string

const (
	StatusOK        Status = "ok"
	StatusIgnored   Status = "ignored"
	StatusDuplicate Status = "duplicate"
	StatusError     Status = "error"
)

type Submitter interface {
	Submit(job worker.Job) error
}

// Observer counts intake outcomes. It may be nil.
type Observer interface {
	UpdateAccepted(status string)
}

// Intake admits updates: dedup first, then hand-off to the worker pool.
type Intake struct {
	guard    dedup.Guard
	pool     Submitter
	relay    *Relay
	observer Observer
	logger   *zap.Logger
}

func NewIntake(guard dedup.Guard, pool Submitter, relay *Relay, observer Observer, logger *zap.Logger) *Intake {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Intake{
		guard:    guard,
		pool:     pool,
		relay:    relay,
		observer: observer,
		logger:   logger.With(zap.String("component", "intake")),
	}
}

// Accept never blocks on pipeline work.
func (in *Intake) Accept(ctx context.Context, upd tgbotapi.Update) Status {
	status := in.accept(ctx, upd)
	if in.observer != nil {
		in.observer.UpdateAccepted(string(status))
	}
	return status
}

func (in *Intake) accept(ctx context.Context, upd tgbotapi.Update) Status {
	if upd.Message == nil {
		return StatusIgnored
	}

	id := strconv.Itoa(upd.UpdateID)
	first, err := in.guard.ShouldProcess(ctx, id)
	if err != nil {
		in.logger.Error("dedup unavailable", zap.String("update_id", id), zap.Error(err))
		return StatusError
	}
	if !first {
		in.logger.Info("duplicate update ignored", zap.String("update_id", id))
		return StatusDuplicate
	}

	msg := upd.Message
	if err := in.pool.Submit(func(ctx context.Context) { in.relay.Handle(ctx, msg) }); err != nil {
		in.logger.Warn("update rejected", zap.String("update_id", id), zap.Error(err))
		if ferr := in.guard.Forget(ctx, id); ferr != nil {
			in.logger.Error("dedup forget failed", zap.String("update_id", id), zap.Error(ferr))
		}
		return StatusError
	}
	return StatusOK
}
