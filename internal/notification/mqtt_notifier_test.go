package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakeMQTTClient struct {
	published []publishedMessage
	failTopic string
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, publishedMessage{
		topic:   topic,
		qos:     qos,
		payload: payload.([]byte),
	})
	if topic == c.failTopic {
		return &fakeToken{err: assert.AnError}
	}
	return &fakeToken{}
}

func (c *fakeMQTTClient) IsConnected() bool                    { return true }
func (c *fakeMQTTClient) IsConnectionOpen() bool               { return true }
func (c *fakeMQTTClient) Connect() mqtt.Token                  { return &fakeToken{} }
func (c *fakeMQTTClient) Disconnect(uint)                      {}
func (c *fakeMQTTClient) AddRoute(string, mqtt.MessageHandler) {}
func (c *fakeMQTTClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}
func (c *fakeMQTTClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}
func (c *fakeMQTTClient) Unsubscribe(...string) mqtt.Token { return &fakeToken{} }
func (c *fakeMQTTClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

func topicAlert() models.Alert {
	return models.Alert{
		ID:          "a-1",
		CompanyName: "Acme",
		Site:        "Planta Norte",
		Code:        "ROJO",
		TypeName:    "Incendio",
		Priority:    models.PriorityCritical,
		Topics:      []string{"Acme/Planta Norte/SIRENA/sirena-1", "Acme/Planta Norte/PANTALLA/lobby"},
		CreatedAt:   time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}
}

func TestMQTTNotifierPublishesEveryTopic(t *testing.T) {
	client := &fakeMQTTClient{}
	notifier := NewMQTTNotifier(client, 1, time.Second, zerolog.Nop())

	alert := topicAlert()
	require.NoError(t, notifier.Notify(context.Background(), alert))
	require.Len(t, client.published, 2)

	assert.Equal(t, alert.Topics[0], client.published[0].topic)
	assert.Equal(t, alert.Topics[1], client.published[1].topic)
	assert.Equal(t, byte(1), client.published[0].qos)

	var msg topicMessage
	require.NoError(t, json.Unmarshal(client.published[0].payload, &msg))
	assert.Equal(t, "a-1", msg.AlertID)
	assert.Equal(t, "ROJO", msg.Code)
	assert.Equal(t, "Incendio", msg.TypeName)
	assert.Equal(t, models.PriorityCritical, msg.Priority)
	assert.Equal(t, "Planta Norte", msg.Site)
}

func TestMQTTNotifierNothingToPublish(t *testing.T) {
	client := &fakeMQTTClient{}
	notifier := NewMQTTNotifier(client, 1, time.Second, zerolog.Nop())

	alert := topicAlert()
	alert.Topics = nil
	require.NoError(t, notifier.Notify(context.Background(), alert))
	assert.Empty(t, client.published)
}

func TestMQTTNotifierReportsFailedTopics(t *testing.T) {
	alert := topicAlert()
	client := &fakeMQTTClient{failTopic: alert.Topics[0]}
	notifier := NewMQTTNotifier(client, 1, time.Second, zerolog.Nop())

	err := notifier.Notify(context.Background(), alert)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")

	// A failed topic must not short-circuit the remaining fan-out.
	assert.Len(t, client.published, 2)
}
