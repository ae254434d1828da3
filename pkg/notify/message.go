package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"liyu1981.xyz/printwatch-service/pkg/models"
)

// Alert is everything an alert email says about one printer.
type Alert struct {
	PrinterID      string
	IPAddress      string
	DepartmentName string
	Condition      string
	Severity       models.Severity
	Recipients     []string
	At             time.Time
}

type severityStyle struct {
	Prefix string
	Label  string
	Color  template.CSS
}

func styleFor(s models.Severity) severityStyle {
	if s == models.SeverityError {
		return severityStyle{Prefix: "[CRITICAL]", Label: "CRITICAL", Color: "#c0392b"}
	}
	return severityStyle{Prefix: "[WARNING]", Label: "WARNING", Color: "#e67e22"}
}

const timestampLayout = "15:04 02/01/2006"

var alertTemplate = template.Must(template.New("alert").Parse(`<div style="margin:0;padding:0;background:#f4f6f8;font-family:Segoe UI,Roboto,Arial,sans-serif;color:#2c3e50;">
  <table role="presentation" border="0" cellpadding="0" cellspacing="0" width="100%">
    <tr><td align="center" style="padding:24px 12px;">
      <table role="presentation" border="0" cellpadding="0" cellspacing="0" width="100%" style="max-width:700px;background:#ffffff;border:1px solid #e6e9ee;border-radius:10px;">
        <tr><td align="center" style="padding:28px 22px;border-bottom:4px solid {{.Style.Color}};">
          <h1 style="font-size:20px;margin:6px 0 0;font-weight:600;">PRINTER MONITORING</h1>
        </td></tr>
        <tr><td align="center" style="background:{{.Style.Color}};padding:14px;">
          <span style="color:#ffffff;font-size:16px;font-weight:700;">{{.Style.Label}} - printer incident</span>
        </td></tr>
        <tr><td style="padding:22px;line-height:1.6;">
          <p style="margin:0 0 10px;">Dear <strong>{{.Department}}</strong> team,</p>
          <p style="margin:0 0 18px;">A problem was detected on one of your printers:</p>
          <table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%" style="border:1px solid #e6e9ee;font-size:14px;margin-bottom:20px;">
            <tr><td style="padding:12px;font-weight:600;width:36%;">Department</td><td style="padding:12px;">{{.Department}}</td></tr>
            <tr><td style="padding:12px;font-weight:600;">IP address</td><td style="padding:12px;">{{.IP}}</td></tr>
            <tr><td style="padding:12px;font-weight:600;">Condition</td><td style="padding:12px;color:{{.Style.Color}};font-weight:700;">{{.Condition}}</td></tr>
            <tr><td style="padding:12px;font-weight:600;">Severity</td><td style="padding:12px;">{{.Severity}}</td></tr>
            <tr><td style="padding:12px;font-weight:600;">Time</td><td style="padding:12px;">{{.Timestamp}}</td></tr>
          </table>
          <div style="text-align:center;margin:18px 0;">
            <a href="{{.Link}}" style="background:{{.Style.Color}};color:#ffffff;text-decoration:none;padding:12px 26px;border-radius:6px;font-weight:700;display:inline-block;">View printer details</a>
          </div>
          <p style="margin:0;color:#5b6a74;">Please resolve the issue or contact IT support.</p>
        </td></tr>
        <tr><td style="background:#fbfdff;padding:18px;text-align:center;font-size:12px;color:#7f8c8d;">
          <p style="margin:6px 0;">This is an automated message from the printer monitoring system.</p>
          <p style="margin:6px 0;">&copy; {{.Year}}</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</div>`))

// Subject builds the tagged subject line.
func Subject(a Alert) string {
	cond := a.Condition
	if cond == "" {
		cond = "Unknown condition"
	}
	return fmt.Sprintf("%s Printer %s (%s)", styleFor(a.Severity).Prefix, a.IPAddress, cond)
}

// Compose renders the alert email body. Condition text comes straight from
// the device page, so everything goes through html/template escaping.
func Compose(a Alert, link string, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.Local
	}
	at := a.At.In(loc)

	var buf bytes.Buffer
	err := alertTemplate.Execute(&buf, map[string]any{
		"Style":      styleFor(a.Severity),
		"Department": a.DepartmentName,
		"IP":         a.IPAddress,
		"Condition":  a.Condition,
		"Severity":   strings.ToUpper(string(a.Severity)),
		"Timestamp":  at.Format(timestampLayout),
		"Link":       template.URL(link),
		"Year":       at.Year(),
	})
	if err != nil {
		return "", fmt.Errorf("render alert email: %w", err)
	}
	return buf.String(), nil
}
