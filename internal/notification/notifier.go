// Package notification resolves alert fan-out scopes and dispatches
// created alerts to delivery channels. Delivery failures are logged,
// never surfaced: the durably created alert is the success signal.
package notification

import (
	"context"
	"fmt"

	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rs/zerolog"
)

// Notifier delivers a created alert over one channel.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Dispatcher fans a created alert out to every configured channel.
type Dispatcher struct {
	logger    zerolog.Logger
	notifiers []Notifier
}

func NewDispatcher(logger zerolog.Logger, notifiers ...Notifier) *Dispatcher {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &Dispatcher{
		logger:    logger.With().Str("component", "notification_dispatcher").Logger(),
		notifiers: active,
	}
}

// Dispatch sends the alert to every channel, logging failures.
func (d *Dispatcher) Dispatch(ctx context.Context, alert models.Alert) {
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, alert); err != nil {
			d.logger.Warn().
				Err(err).
				Str("alert_id", alert.ID).
				Str("channel", notifierChannelName(notifier)).
				Msg("failed to deliver alert notification")
		}
	}
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
