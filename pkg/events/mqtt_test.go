package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/models"
	_ "liyu1981.xyz/printwatch-service/pkg/testing"
)

type stubToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *stubToken {
	t := &stubToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *stubToken) Wait() bool                       { <-t.done; return true }
func (t *stubToken) WaitTimeout(d time.Duration) bool { return true }
func (t *stubToken) Done() <-chan struct{}            { return t.done }
func (t *stubToken) Error() error                     { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// stubClient records publishes; the remaining Client methods are not used.
type stubClient struct {
	pahomqtt.Client

	mu           sync.Mutex
	messages     []published
	token        pahomqtt.Token
	disconnected bool
}

func (c *stubClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return completedToken(nil)
}

func (c *stubClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func TestPublishState(t *testing.T) {
	client := &stubClient{}
	pub := NewPublisherWithClient(client, "printwatch")

	toner := int64(50)
	polled := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	p := &models.Printer{
		ID:                "4d7c2c1e-8f2b-4f5a-9d7e-1f3a2b4c5d6e",
		IPAddress:         "192.168.10.5",
		Online:            true,
		ConditionText:     "Toner Low",
		ConditionSeverity: models.SeverityWarning,
		TonerLevel:        &toner,
		TonerFromWeb:      true,
		LastPollAt:        &polled,
	}

	require.NoError(t, pub.PublishState(context.Background(), p))

	require.Len(t, client.messages, 1)
	msg := client.messages[0]
	assert.Equal(t, "printwatch/printers/4d7c2c1e-8f2b-4f5a-9d7e-1f3a2b4c5d6e/state", msg.topic)
	assert.True(t, msg.retained)
	assert.Equal(t, byte(1), msg.qos)

	var state map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &state))
	assert.Equal(t, "192.168.10.5", state["ip_address"])
	assert.Equal(t, "warning", state["severity"])
	assert.Equal(t, 50.0, state["toner_level"])
	assert.Equal(t, true, state["toner_from_web"])
	assert.Nil(t, state["page_counter"], "unknown stays null")
}

func TestPublishStateBrokerError(t *testing.T) {
	client := &stubClient{token: completedToken(errors.New("not connected"))}
	pub := NewPublisherWithClient(client, "printwatch")

	err := pub.PublishState(context.Background(), &models.Printer{ID: "p1"})
	assert.EqualError(t, err, "not connected")
}

func TestPublishStateHonoursContext(t *testing.T) {
	client := &stubClient{token: &stubToken{done: make(chan struct{})}}
	pub := NewPublisherWithClient(client, "printwatch")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.PublishState(ctx, &models.Printer{ID: "p1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClearStateAndClose(t *testing.T) {
	common.SetTestLoggerNop()

	client := &stubClient{}
	pub := NewPublisherWithClient(client, "hotel")

	require.NoError(t, pub.ClearState(context.Background(), "p9"))
	pub.Close()

	require.Len(t, client.messages, 2)
	assert.Equal(t, "hotel/printers/p9/state", client.messages[0].topic)
	assert.Empty(t, client.messages[0].payload)
	assert.Equal(t, "hotel/service/state", client.messages[1].topic)
	assert.Equal(t, "offline", string(client.messages[1].payload))
	assert.True(t, client.disconnected)
}
