package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/device"
	"liyu1981.xyz/printwatch-service/pkg/models"
)

// PollResult is the outcome of one device's task. Error is set when the
// record could not be persisted or the task blew up; a failed alert
// evaluation is reported in AlertError and does not fail the poll.
type PollResult struct {
	PrinterID  string          `json:"printer_id"`
	IPAddress  string          `json:"ip_address"`
	Online     bool            `json:"online"`
	Severity   models.Severity `json:"severity"`
	Alert      *Decision       `json:"alert,omitempty"`
	AlertError string          `json:"alert_error,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type PollReport struct {
	DepartmentID string       `json:"department_id,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	Total        int          `json:"total"`
	Online       int          `json:"online"`
	Offline      int          `json:"offline"`
	Failed       int          `json:"failed"`
	Dispatched   int          `json:"dispatched"`
	Delivered    int          `json:"delivered"`
	Results      []PollResult `json:"results"`
}

func (r *PollReport) tally() {
	r.Total = len(r.Results)
	for _, res := range r.Results {
		switch {
		case res.Error != "":
			r.Failed++
		case res.Online:
			r.Online++
		default:
			r.Offline++
		}
		if res.Alert != nil && res.Alert.Dispatch {
			r.Dispatched++
			if res.Alert.Delivered {
				r.Delivered++
			}
		}
	}
}

// merge folds a snapshot into the record. An unreachable device keeps its
// last known telemetry and condition.
func merge(p *models.Printer, snap device.Snapshot, at time.Time) {
	p.Online = snap.Online
	p.LastPollAt = &at
	if !snap.Online {
		return
	}

	p.PrinterType = snap.PrinterType
	p.SerialNumber = snap.SerialNumber
	p.DrumUnitLevel = snap.DrumUnit
	p.PageCounter = snap.PageCounter
	p.TonerLevel = snap.TonerLevel
	p.TonerFromWeb = snap.TonerFromWeb

	p.ConditionText = snap.Condition.Text
	p.ConditionSeverity = snap.Condition.Severity
	p.ConditionBackground = nil
	if snap.Condition.Background != "" {
		bg := snap.Condition.Background
		p.ConditionBackground = &bg
	}
}

func (m *Monitor) pollPrinter(ctx context.Context, p *models.Printer) PollResult {
	logger := common.GetCoreLogger(common.LoggerCategoryPoll).With(
		zap.String("printer_id", p.ID),
		zap.String("ip", p.IPAddress),
	)

	snap := m.Reader.Fetch(ctx, p.IPAddress)
	merge(p, snap, m.now())

	result := PollResult{PrinterID: p.ID, IPAddress: p.IPAddress, Online: p.Online, Severity: p.ConditionSeverity}

	if err := m.Store.SaveTelemetry(ctx, p); err != nil {
		logger.Error("Failed to persist poll result", zap.Error(err))
		result.Error = err.Error()
		return result
	}
	// the store may have refreshed identity fields from a concurrent edit
	result.IPAddress = p.IPAddress

	logger.Debug("Printer polled",
		zap.Bool("online", p.Online),
		zap.String("severity", string(p.ConditionSeverity)))

	if m.Publisher != nil {
		if err := m.Publisher.PublishState(ctx, p); err != nil {
			logger.Warn("Failed to publish printer state", zap.Error(err))
		}
	}

	if snap.Online && p.ConditionSeverity.Alertable() {
		decision, err := m.Gate.Process(ctx, p)
		if err != nil {
			logger.Error("Alert evaluation failed", zap.Error(err))
			result.AlertError = err.Error()
		} else {
			result.Alert = &decision
		}
	}

	return result
}

// pollAll fans out one task per printer in scope, bounded by the configured
// concurrency, and waits for all of them. A task never fails the batch.
func (m *Monitor) pollAll(ctx context.Context, departmentID string) (*PollReport, error) {
	logger := common.GetCoreLogger(common.LoggerCategoryPoll)

	printers, err := m.Store.ListPrinters(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list printers: %w", err)
	}

	report := &PollReport{
		DepartmentID: departmentID,
		StartedAt:    m.now(),
		Results:      make([]PollResult, len(printers)),
	}

	var g errgroup.Group
	g.SetLimit(m.concurrency())

	for i := range printers {
		p := &printers[i]
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Poll task panicked",
						zap.String("printer_id", p.ID), zap.Any("panic", r))
					report.Results[i] = PollResult{
						PrinterID: p.ID,
						IPAddress: p.IPAddress,
						Severity:  p.ConditionSeverity,
						Error:     fmt.Sprintf("panic: %v", r),
					}
				}
			}()
			report.Results[i] = m.Poller.PollPrinter(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = m.now()
	report.tally()

	logger.Info("Poll batch completed",
		zap.String("department_id", departmentID),
		zap.Int("total", report.Total),
		zap.Int("online", report.Online),
		zap.Int("offline", report.Offline),
		zap.Int("failed", report.Failed),
		zap.Int("dispatched", report.Dispatched),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))

	return report, nil
}

type IPollerImpl struct {
	monitor *Monitor
}

func (ip *IPollerImpl) PollAll(ctx context.Context, departmentID string) (*PollReport, error) {
	return ip.monitor.pollAll(ctx, departmentID)
}

func (ip *IPollerImpl) PollPrinter(ctx context.Context, p *models.Printer) PollResult {
	return ip.monitor.pollPrinter(ctx, p)
}

func (m *Monitor) GetIPoller() IPoller {
	return &IPollerImpl{monitor: m}
}
