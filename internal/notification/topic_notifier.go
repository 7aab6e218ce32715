package notification

import (
	"context"

	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rs/zerolog"
)

// TopicNotifier records the fan-out set of a created alert, one line
// per device topic. It is the audit channel next to the MQTT
// publisher and keeps working when no broker is configured.
type TopicNotifier struct {
	enabled bool
	logger  zerolog.Logger
}

func NewTopicNotifier(enabled bool, logger zerolog.Logger) *TopicNotifier {
	return &TopicNotifier{
		enabled: enabled,
		logger:  logger.With().Str("notifier", "topic").Logger(),
	}
}

func (n *TopicNotifier) Notify(_ context.Context, alert models.Alert) error {
	if !n.enabled || len(alert.Topics) == 0 {
		return nil
	}
	for _, topic := range alert.Topics {
		n.logger.Info().
			Str("alert_id", alert.ID).
			Str("code", alert.Code).
			Str("priority", string(alert.Priority)).
			Str("topic", topic).
			Msg("alert dispatched to device topic")
	}
	return nil
}

func (n *TopicNotifier) String() string {
	if !n.enabled {
		return "TopicNotifier(disabled)"
	}
	return "TopicNotifier"
}
