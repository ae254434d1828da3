package monitor_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/models"
	"liyu1981.xyz/printwatch-service/pkg/monitor"
	_ "liyu1981.xyz/printwatch-service/pkg/testing"
)

func TestEvaluateCooldown(t *testing.T) {
	common.SetTestLoggerNop()
	f := newFixture(t)
	ctx := context.Background()

	dept := f.department(t, "Front Office", "fo@resort.test")
	p := f.printer(t, "10.2.0.1", dept)

	lastAlert := f.clock.Now().Add(-30 * time.Minute)
	p.LastAlertAt = &lastAlert
	p.LastAlertSeverity = models.SeverityWarning

	d, err := f.monitor.Gate.Evaluate(ctx, p, models.SeverityWarning)
	require.NoError(t, err)
	assert.False(t, d.Dispatch)
	assert.Equal(t, monitor.ReasonCooldown, d.Reason)

	d, err = f.monitor.Gate.Evaluate(ctx, p, models.SeverityError)
	require.NoError(t, err)
	assert.True(t, d.Dispatch, "a severity change is never held back by the cooldown")
	assert.Equal(t, "Front Office", d.DepartmentName)
	assert.Equal(t, []string{"fo@resort.test"}, d.Recipients)

	f.clock.Advance(31 * time.Minute)
	d, err = f.monitor.Gate.Evaluate(ctx, p, models.SeverityWarning)
	require.NoError(t, err)
	assert.True(t, d.Dispatch, "cooldown has elapsed")
}

func TestEvaluateSuppressionReasons(t *testing.T) {
	common.SetTestLoggerNop()

	cases := []struct {
		name  string
		setup func(t *testing.T, f *fixture) *models.Printer
		want  monitor.SuppressReason
	}{
		{
			name: "notifier disabled",
			setup: func(t *testing.T, f *fixture) *models.Printer {
				f.notifier.enabled = false
				return f.printer(t, "10.2.1.1", f.department(t, "Spa", "spa@resort.test"))
			},
			want: monitor.ReasonNotifierDisabled,
		},
		{
			name: "no department",
			setup: func(t *testing.T, f *fixture) *models.Printer {
				return f.printer(t, "10.2.1.2", "")
			},
			want: monitor.ReasonNoDepartment,
		},
		{
			name: "department removed",
			setup: func(t *testing.T, f *fixture) *models.Printer {
				p := f.printer(t, "10.2.1.3", "")
				gone := "3f1c9a9e-0000-4000-8000-000000000000"
				p.DepartmentID = &gone
				return p
			},
			want: monitor.ReasonNoDepartment,
		},
		{
			name: "no recipients",
			setup: func(t *testing.T, f *fixture) *models.Printer {
				return f.printer(t, "10.2.1.4", f.department(t, "Night Audit"))
			},
			want: monitor.ReasonNoRecipients,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			p := tc.setup(t, f)

			d, err := f.monitor.Gate.Evaluate(context.Background(), p, models.SeverityError)
			require.NoError(t, err)
			assert.False(t, d.Dispatch)
			assert.Equal(t, tc.want, d.Reason)
		})
	}
}

func TestProcessFailedSendDoesNotAdvanceAlertState(t *testing.T) {
	common.SetTestLoggerNop()
	f := newFixture(t)
	ctx := context.Background()

	dept := f.department(t, "Kitchen", "chef@resort.test", "sous@resort.test")
	p := f.printer(t, "10.2.2.1", dept)
	p.ConditionSeverity = models.SeverityError
	p.ConditionText = "Paper Jam"

	f.notifier.setErr(errors.New("421 service not available"))

	d, err := f.monitor.Gate.Process(ctx, p)
	require.NoError(t, err)
	assert.True(t, d.Dispatch)
	assert.False(t, d.Delivered)

	got := f.reload(t, p.ID)
	assert.Nil(t, got.LastAlertAt)
	assert.Empty(t, got.LastAlertSeverity)
	require.Len(t, got.ErrorLog, 1)
	assert.False(t, got.ErrorLog[0].Notified)
	assert.Equal(t, "Paper Jam", got.ErrorLog[0].Condition)

	// next poll cycle, same condition: dispatched again
	f.clock.Advance(time.Minute)
	f.notifier.setErr(nil)

	d, err = f.monitor.Gate.Process(ctx, p)
	require.NoError(t, err)
	assert.True(t, d.Dispatch)
	assert.True(t, d.Delivered)

	got = f.reload(t, p.ID)
	require.NotNil(t, got.LastAlertAt)
	assert.True(t, f.clock.Now().Equal(*got.LastAlertAt))
	assert.Equal(t, models.SeverityError, got.LastAlertSeverity)
	require.Len(t, got.ErrorLog, 2)
	assert.True(t, got.ErrorLog[1].Notified)

	// delivered, so the following cycle is held back
	f.clock.Advance(time.Minute)
	d, err = f.monitor.Gate.Process(ctx, p)
	require.NoError(t, err)
	assert.False(t, d.Dispatch)
	assert.Equal(t, monitor.ReasonCooldown, d.Reason)

	assert.Equal(t, 2, f.notifier.sent())
	assert.Len(t, f.reload(t, p.ID).ErrorLog, 2, "suppressed evaluations are not logged")
}

func TestProcessSendsAlertContent(t *testing.T) {
	common.SetTestLoggerNop()
	f := newFixture(t)

	dept := f.department(t, "Housekeeping", "hk@resort.test")
	p := f.printer(t, "10.2.3.1", dept)
	p.ConditionSeverity = models.SeverityWarning
	p.ConditionText = "Toner Low"

	_, err := f.monitor.Gate.Process(context.Background(), p)
	require.NoError(t, err)

	require.Equal(t, 1, f.notifier.sent())
	alert := f.notifier.alerts[0]
	assert.Equal(t, p.ID, alert.PrinterID)
	assert.Equal(t, "10.2.3.1", alert.IPAddress)
	assert.Equal(t, "Housekeeping", alert.DepartmentName)
	assert.Equal(t, "Toner Low", alert.Condition)
	assert.Equal(t, models.SeverityWarning, alert.Severity)
	assert.Equal(t, []string{"hk@resort.test"}, alert.Recipients)
}

func TestProcess_WithLog(t *testing.T) {
	var buf = &bytes.Buffer{}
	common.SetTestCaptureLogger(buf, zapcore.InfoLevel)

	f := newFixture(t)
	p := f.printer(t, "10.2.4.1", "")
	p.ConditionSeverity = models.SeverityError

	d, err := f.monitor.Gate.Process(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, d.Dispatch)

	logs := ParseLogs(buf)
	assert.True(t, findLog(logs, func(l map[string]any) bool {
		return l["logger"] == "monitor_core" &&
			l["category"] == "alert" &&
			l["msg"] == "Alert suppressed" &&
			l["reason"] == "no-department" &&
			l["printer_id"] == p.ID
	}), "log not found")
}

type alertStateFailingStore struct {
	monitor.PrinterStore
}

func (s alertStateFailingStore) RecordAlert(ctx context.Context, p *models.Printer, entry *models.AlertLogEntry) error {
	return errors.New("update alert state: database is locked")
}

func TestProcessLogsUnrecordedAttempt(t *testing.T) {
	var buf = &bytes.Buffer{}
	common.SetTestCaptureLogger(buf, zapcore.InfoLevel)

	f := newFixture(t)
	f.monitor.Store = alertStateFailingStore{f.store}

	dept := f.department(t, "Front Office", "fo@resort.test")
	p := f.printer(t, "10.2.5.1", dept)
	p.ConditionSeverity = models.SeverityError
	p.ConditionText = "Paper Jam"

	d, err := f.monitor.Gate.Process(context.Background(), p)
	assert.ErrorContains(t, err, "record alert")
	assert.True(t, d.Delivered)
	assert.Nil(t, p.LastAlertAt, "in-memory state follows the store")
	assert.Empty(t, p.LastAlertSeverity)

	logs := ParseLogs(buf)
	assert.True(t, findLog(logs, func(l map[string]any) bool {
		return l["level"] == "error" &&
			l["category"] == "alert" &&
			l["msg"] == "Failed to record alert attempt" &&
			l["condition"] == "Paper Jam" &&
			l["notified"] == true &&
			l["printer_id"] == p.ID
	}), "log not found")
}
