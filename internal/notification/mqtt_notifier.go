package notification

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rs/zerolog"
)

// ConnectBroker dials the MQTT broker and blocks until the initial
// connection attempt resolves. The returned client reconnects on its
// own after transient drops.
func ConnectBroker(brokerURL, clientID, username, password string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrap(token.Error(), "connect to mqtt broker")
	}
	return client, nil
}

// topicMessage is the wire shape pushed to each device topic. Devices
// only need the display essentials, not the full alert record.
type topicMessage struct {
	AlertID     string          `json:"alert_id"`
	Code        string          `json:"code"`
	TypeName    string          `json:"type_name"`
	Priority    models.Priority `json:"priority"`
	CompanyName string          `json:"company_name"`
	Site        string          `json:"site"`
	Description string          `json:"description,omitempty"`
	Location    json.RawMessage `json:"location,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MQTTNotifier publishes created alerts to the routing topic of every
// on-site device in the alert's fan-out set.
type MQTTNotifier struct {
	client         mqtt.Client
	qos            byte
	publishTimeout time.Duration
	logger         zerolog.Logger
}

func NewMQTTNotifier(client mqtt.Client, qos byte, publishTimeout time.Duration, logger zerolog.Logger) *MQTTNotifier {
	return &MQTTNotifier{
		client:         client,
		qos:            qos,
		publishTimeout: publishTimeout,
		logger:         logger.With().Str("notifier", "mqtt").Logger(),
	}
}

func (n *MQTTNotifier) Notify(_ context.Context, alert models.Alert) error {
	if len(alert.Topics) == 0 {
		return nil
	}

	payload, err := json.Marshal(topicMessage{
		AlertID:     alert.ID,
		Code:        alert.Code,
		TypeName:    alert.TypeName,
		Priority:    alert.Priority,
		CompanyName: alert.CompanyName,
		Site:        alert.Site,
		Description: alert.Description,
		Location:    alert.Location,
		CreatedAt:   alert.CreatedAt,
	})
	if err != nil {
		return errors.Wrap(err, "marshal topic message")
	}

	failed := 0
	for _, topic := range alert.Topics {
		token := n.client.Publish(topic, n.qos, false, payload)
		if !token.WaitTimeout(n.publishTimeout) {
			n.logger.Warn().
				Str("alert_id", alert.ID).
				Str("topic", topic).
				Msg("publish timed out")
			failed++
			continue
		}
		if err := token.Error(); err != nil {
			n.logger.Warn().
				Err(err).
				Str("alert_id", alert.ID).
				Str("topic", topic).
				Msg("publish failed")
			failed++
			continue
		}
		n.logger.Debug().
			Str("alert_id", alert.ID).
			Str("topic", topic).
			Msg("alert published to device topic")
	}
	if failed > 0 {
		return errors.Errorf("publish failed for %d of %d topics", failed, len(alert.Topics))
	}
	return nil
}

func (n *MQTTNotifier) String() string {
	return "MQTTNotifier"
}
