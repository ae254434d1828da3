package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"liyu1981.xyz/printwatch-service/pkg/models"
	"liyu1981.xyz/printwatch-service/pkg/monitor"
)

func TestPrintSummary(t *testing.T) {
	started := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	report := &monitor.PollReport{
		StartedAt:  started,
		FinishedAt: started.Add(2500 * time.Millisecond),
		Total:      6,
		Online:     4,
		Offline:    1,
		Failed:     1,
		Dispatched: 2,
		Delivered:  1,
		Results: []monitor.PollResult{
			{IPAddress: "10.0.0.1", Online: true, Severity: models.SeverityOK},
			{IPAddress: "10.0.0.2", Online: false, Severity: models.SeverityUnknown},
			{IPAddress: "10.0.0.3", Error: "panic: boom"},
			{IPAddress: "10.0.0.4", Online: true, Severity: models.SeverityWarning,
				Alert: &monitor.Decision{Reason: monitor.ReasonCooldown}},
			{IPAddress: "10.0.0.5", Online: true, Severity: models.SeverityError,
				Alert: &monitor.Decision{Dispatch: true, Delivered: true}},
			{IPAddress: "10.0.0.6", Online: true, Severity: models.SeverityWarning,
				Alert: &monitor.Decision{Dispatch: true, Delivered: false}},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "Polled 6 printers in 2.5s: 4 online, 1 offline, 1 failed, 2 alerts dispatched (1 delivered)")
	assert.Regexp(t, `10\.0\.0\.2\s+offline`, out)
	assert.Contains(t, out, "FAILED   panic: boom")
	assert.Contains(t, out, "alert suppressed (cooldown)")
	assert.Regexp(t, `10\.0\.0\.5\s+error\s+alert delivered=true`, out)
	assert.Regexp(t, `10\.0\.0\.6\s+warning\s+alert delivered=false`, out)
}
