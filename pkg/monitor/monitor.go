package monitor

import (
	"context"
	"time"

	"liyu1981.xyz/printwatch-service/pkg/device"
	"liyu1981.xyz/printwatch-service/pkg/models"
	"liyu1981.xyz/printwatch-service/pkg/notify"
)

const (
	DefaultCooldown    = 60 * time.Minute
	DefaultConcurrency = 16
)

// PrinterStore is the persisted device-record store.
type PrinterStore interface {
	ListPrinters(ctx context.Context, departmentID string) ([]models.Printer, error)
	GetPrinter(ctx context.Context, id string) (*models.Printer, error)
	SaveTelemetry(ctx context.Context, p *models.Printer) error
	RecordAlert(ctx context.Context, p *models.Printer, entry *models.AlertLogEntry) error
}

type DepartmentLookup interface {
	DepartmentName(ctx context.Context, id string) (string, error)
}

type UserDirectory interface {
	DepartmentEmails(ctx context.Context, departmentID string) ([]string, error)
}

type DeviceReader interface {
	Fetch(ctx context.Context, ip string) device.Snapshot
}

type AlertNotifier interface {
	Enabled() bool
	NotifyAlert(ctx context.Context, alert notify.Alert) error
}

// Publisher receives every persisted poll result. Optional.
type Publisher interface {
	PublishState(ctx context.Context, p *models.Printer) error
}

type IPoller interface {
	PollAll(ctx context.Context, departmentID string) (*PollReport, error)
	PollPrinter(ctx context.Context, p *models.Printer) PollResult
}

type IGate interface {
	Evaluate(ctx context.Context, p *models.Printer, severity models.Severity) (Decision, error)
	Process(ctx context.Context, p *models.Printer) (Decision, error)
}

type Monitor struct {
	Store       PrinterStore
	Departments DepartmentLookup
	Users       UserDirectory
	Reader      DeviceReader
	Notifier    AlertNotifier
	Publisher   Publisher

	Cooldown    time.Duration
	Concurrency int
	Now         func() time.Time

	Poller IPoller
	Gate   IGate
}

type ServiceOpts struct {
	Poller IPoller
	Gate   IGate
}

func (m *Monitor) WithServices(opts ServiceOpts) *Monitor {
	if opts.Poller != nil {
		m.Poller = opts.Poller
	}
	if opts.Gate != nil {
		m.Gate = opts.Gate
	}
	return m
}

func (m *Monitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Monitor) cooldown() time.Duration {
	if m.Cooldown > 0 {
		return m.Cooldown
	}
	return DefaultCooldown
}

func (m *Monitor) concurrency() int {
	if m.Concurrency > 0 {
		return m.Concurrency
	}
	return DefaultConcurrency
}

func (m *Monitor) notifierEnabled() bool {
	return m.Notifier != nil && m.Notifier.Enabled()
}
