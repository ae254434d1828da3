package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/models"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	ClientID    string
}

// State is the retained message published for each printer after a poll.
type State struct {
	PrinterID    string          `json:"printer_id"`
	IPAddress    string          `json:"ip_address"`
	DepartmentID *string         `json:"department_id,omitempty"`
	Online       bool            `json:"online"`
	Severity     models.Severity `json:"severity"`
	Condition    string          `json:"condition"`
	TonerLevel   *int64          `json:"toner_level"`
	TonerFromWeb bool            `json:"toner_from_web"`
	DrumUnit     *int64          `json:"drum_unit_level"`
	PageCounter  *int64          `json:"page_counter"`
	LastPollAt   *time.Time      `json:"last_poll_at"`
}

func StateOf(p *models.Printer) State {
	return State{
		PrinterID:    p.ID,
		IPAddress:    p.IPAddress,
		DepartmentID: p.DepartmentID,
		Online:       p.Online,
		Severity:     p.ConditionSeverity,
		Condition:    p.ConditionText,
		TonerLevel:   p.TonerLevel,
		TonerFromWeb: p.TonerFromWeb,
		DrumUnit:     p.DrumUnitLevel,
		PageCounter:  p.PageCounter,
		LastPollAt:   p.LastPollAt,
	}
}

func StateTopic(prefix, printerID string) string {
	return prefix + "/printers/" + printerID + "/state"
}

func serviceTopic(prefix string) string {
	return prefix + "/service/state"
}

// MQTTPublisher pushes printer state to a broker as retained messages, so a
// subscriber joining late still sees the latest poll of every printer.
type MQTTPublisher struct {
	client pahomqtt.Client
	prefix string
}

func NewMQTTPublisher(cfg Config) (*MQTTPublisher, error) {
	logger := common.GetCoreLogger(common.LoggerCategoryEvents)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "printwatch"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(serviceTopic(cfg.TopicPrefix), "offline", 1, true).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.Warn("MQTT connection lost", zap.Error(err))
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	p := NewPublisherWithClient(client, cfg.TopicPrefix)
	if err := p.publish(context.Background(), serviceTopic(cfg.TopicPrefix), []byte("online")); err != nil {
		logger.Warn("Failed to announce service state", zap.Error(err))
	}

	logger.Info("MQTT publisher connected",
		zap.String("broker", cfg.Broker), zap.String("prefix", cfg.TopicPrefix))
	return p, nil
}

func NewPublisherWithClient(client pahomqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix}
}

func (p *MQTTPublisher) PublishState(ctx context.Context, printer *models.Printer) error {
	payload, err := json.Marshal(StateOf(printer))
	if err != nil {
		return err
	}
	return p.publish(ctx, StateTopic(p.prefix, printer.ID), payload)
}

// ClearState removes the retained message of a deleted printer.
func (p *MQTTPublisher) ClearState(ctx context.Context, printerID string) error {
	return p.publish(ctx, StateTopic(p.prefix, printerID), []byte{})
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, true, payload)

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MQTTPublisher) Close() {
	if err := p.publish(context.Background(), serviceTopic(p.prefix), []byte("offline")); err != nil {
		common.GetCoreLogger(common.LoggerCategoryEvents).Warn("Failed to announce service state", zap.Error(err))
	}
	p.client.Disconnect(1000)
}
