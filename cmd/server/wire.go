package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/config"
	"liyu1981.xyz/printwatch-service/pkg/db"
	"liyu1981.xyz/printwatch-service/pkg/device"
	"liyu1981.xyz/printwatch-service/pkg/events"
	"liyu1981.xyz/printwatch-service/pkg/link"
	"liyu1981.xyz/printwatch-service/pkg/monitor"
	"liyu1981.xyz/printwatch-service/pkg/notify"
)

type app struct {
	cfg     *config.Config
	store   *db.Store
	links   *link.Issuer
	events  *events.MQTTPublisher
	monitor *monitor.Monitor
}

func (a *app) close() {
	if a.events != nil {
		a.events.Close()
	}
}

func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := common.GetLogger()

	dialector, err := db.DialectorFor(cfg.DBType)
	if err != nil {
		return nil, err
	}
	store := db.NewStore(db.GetInstance(dialector))

	links := link.NewIssuer(cfg.PublicLinkSecret, cfg.PublicBaseURL, cfg.PublicLinkTTL)
	if !links.PublicEnabled() {
		logger.Warn("PUBLIC_LINK_SECRET not set, alert emails will carry login-only links")
	}

	var transport notify.Transport
	if cfg.SMTP.Enabled() {
		smtp, err := notify.NewSMTPTransport(cfg.SMTP)
		if err != nil {
			return nil, fmt.Errorf("smtp transport: %w", err)
		}
		transport = smtp
	} else {
		logger.Warn("SMTP not fully configured, alert emails are disabled")
	}

	var notifyOpts []notify.Option
	if cfg.MailRatePerMinute > 0 {
		every := time.Minute / time.Duration(cfg.MailRatePerMinute)
		notifyOpts = append(notifyOpts, notify.WithRateLimit(rate.NewLimiter(rate.Every(every), 1)))
	}
	notifier := notify.New(transport, links, cfg.FromEmail, notifyOpts...)

	reader := device.NewReader(
		device.NewGoSNMPClient(cfg.SNMP.Community, cfg.SNMP.Port, cfg.SNMP.Timeout),
		cfg.SNMP.Timeout,
		cfg.WebTimeout,
	)

	m := &monitor.Monitor{
		Store:       store,
		Departments: store,
		Users:       store,
		Reader:      reader,
		Notifier:    notifier,
		Cooldown:    cfg.AlertCooldown,
		Concurrency: cfg.PollConcurrency,
	}
	m.WithServices(monitor.ServiceOpts{
		Poller: m.GetIPoller(),
		Gate:   m.GetIGate(),
	})

	a := &app{cfg: cfg, store: store, links: links, monitor: m}

	if cfg.MQTT.Enabled() {
		publisher, err := events.NewMQTTPublisher(events.Config{
			Broker:      cfg.MQTT.Broker,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		})
		if err != nil {
			// state publication is optional; polling and alerting carry on
			logger.Error("MQTT publisher unavailable", zap.Error(err))
		} else {
			a.events = publisher
			m.Publisher = publisher
		}
	}

	logger.Info("Monitor configured",
		zap.String("db_type", cfg.DBType),
		zap.Int("poll_concurrency", cfg.PollConcurrency),
		zap.Duration("alert_cooldown", cfg.AlertCooldown),
		zap.Bool("email", notifier.Enabled()),
		zap.Bool("public_links", links.PublicEnabled()),
		zap.Bool("mqtt", a.events != nil))

	return a, nil
}
