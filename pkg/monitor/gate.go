package monitor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/db"
	"liyu1981.xyz/printwatch-service/pkg/models"
	"liyu1981.xyz/printwatch-service/pkg/notify"
)

type SuppressReason string

const (
	ReasonNotifierDisabled SuppressReason = "notifier-disabled"
	ReasonCooldown         SuppressReason = "cooldown"
	ReasonNoDepartment     SuppressReason = "no-department"
	ReasonNoRecipients     SuppressReason = "no-recipients"
)

// Decision is the gate's verdict. Reason is set only when Dispatch is false;
// Delivered is set by Process once the notifier has answered.
type Decision struct {
	Dispatch       bool           `json:"dispatch"`
	Reason         SuppressReason `json:"reason,omitempty"`
	DepartmentName string         `json:"department_name,omitempty"`
	Recipients     []string       `json:"recipients,omitempty"`
	Delivered      bool           `json:"delivered"`
}

func suppressed(reason SuppressReason) Decision {
	return Decision{Reason: reason}
}

// evaluate applies the suppression rules in order. Lookup failures are
// returned as errors rather than read as "no recipients".
func (m *Monitor) evaluate(ctx context.Context, p *models.Printer, severity models.Severity) (Decision, error) {
	if !m.notifierEnabled() {
		return suppressed(ReasonNotifierDisabled), nil
	}

	if severity == p.LastAlertSeverity && p.LastAlertAt != nil &&
		m.now().Sub(*p.LastAlertAt) < m.cooldown() {
		return suppressed(ReasonCooldown), nil
	}

	if p.DepartmentID == nil || *p.DepartmentID == "" {
		return suppressed(ReasonNoDepartment), nil
	}

	name, err := m.Departments.DepartmentName(ctx, *p.DepartmentID)
	if errors.Is(err, db.ErrNotFound) {
		return suppressed(ReasonNoDepartment), nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("resolve department: %w", err)
	}

	recipients, err := m.Users.DepartmentEmails(ctx, *p.DepartmentID)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		return suppressed(ReasonNoRecipients), nil
	}

	return Decision{Dispatch: true, DepartmentName: name, Recipients: recipients}, nil
}

// process evaluates the record's current condition and, on dispatch, sends
// the alert and appends one log entry whatever the outcome. The alert state
// only advances when the send succeeded, so a failed delivery is retried by
// the next poll.
func (m *Monitor) process(ctx context.Context, p *models.Printer) (Decision, error) {
	logger := common.GetCoreLogger(common.LoggerCategoryAlert).With(
		zap.String("printer_id", p.ID),
		zap.String("ip", p.IPAddress),
		zap.String("severity", string(p.ConditionSeverity)),
	)

	severity := p.ConditionSeverity
	decision, err := m.Gate.Evaluate(ctx, p, severity)
	if err != nil {
		return decision, err
	}
	if !decision.Dispatch {
		logger.Info("Alert suppressed", zap.String("reason", string(decision.Reason)))
		return decision, nil
	}

	at := m.now()
	sendErr := m.Notifier.NotifyAlert(ctx, notify.Alert{
		PrinterID:      p.ID,
		IPAddress:      p.IPAddress,
		DepartmentName: decision.DepartmentName,
		Condition:      p.ConditionText,
		Severity:       severity,
		Recipients:     decision.Recipients,
		At:             at,
	})
	decision.Delivered = sendErr == nil

	entry := &models.AlertLogEntry{
		Severity:  severity,
		Condition: p.ConditionText,
		At:        at,
		Notified:  decision.Delivered,
	}

	prevAt, prevSeverity := p.LastAlertAt, p.LastAlertSeverity
	if decision.Delivered {
		p.LastAlertAt = &at
		p.LastAlertSeverity = severity
	}

	if err := m.Store.RecordAlert(ctx, p, entry); err != nil {
		p.LastAlertAt, p.LastAlertSeverity = prevAt, prevSeverity
		logger.Error("Failed to record alert attempt",
			zap.Bool("notified", decision.Delivered),
			zap.String("condition", entry.Condition),
			zap.Time("at", at),
			zap.Error(err))
		return decision, fmt.Errorf("record alert: %w", err)
	}

	logger.Info("Alert recorded",
		zap.Bool("notified", decision.Delivered),
		zap.Int("recipients", len(decision.Recipients)))

	return decision, nil
}

type IGateImpl struct {
	monitor *Monitor
}

func (ig *IGateImpl) Evaluate(ctx context.Context, p *models.Printer, severity models.Severity) (Decision, error) {
	return ig.monitor.evaluate(ctx, p, severity)
}

func (ig *IGateImpl) Process(ctx context.Context, p *models.Printer) (Decision, error) {
	return ig.monitor.process(ctx, p)
}

func (m *Monitor) GetIGate() IGate {
	return &IGateImpl{monitor: m}
}
