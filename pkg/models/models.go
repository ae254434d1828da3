package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityUnknown Severity = "unknown"
)

// Alertable reports whether a condition of this severity goes through the
// alert gate.
func (s Severity) Alertable() bool {
	return s == SeverityWarning || s == SeverityError
}

type Department struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"uniqueIndex"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

type User struct {
	ID           string  `gorm:"primaryKey;size:36"`
	Username     string  `gorm:"uniqueIndex"`
	Email        *string `gorm:"index"`
	DepartmentID *string `gorm:"index;size:36"`
	CreatedAt    time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Printer is one managed device. Telemetry pointers are nil when the value is
// unknown; zero is a real reading.
type Printer struct {
	ID           string  `gorm:"primaryKey;size:36" json:"id"`
	IPAddress    string  `gorm:"column:ip_address;uniqueIndex;size:15" json:"ip_address"`
	DepartmentID *string `gorm:"column:department_id;index;size:36" json:"department_id"`

	PrinterType   *string `gorm:"column:printer_type" json:"printer_type"`
	SerialNumber  *string `gorm:"column:serial_number" json:"serial_number"`
	DrumUnitLevel *int64  `gorm:"column:drum_unit_level" json:"drum_unit_level"`
	PageCounter   *int64  `gorm:"column:page_counter" json:"page_counter"`
	TonerLevel    *int64  `gorm:"column:toner_level" json:"toner_level"`
	TonerFromWeb  bool    `gorm:"column:toner_from_web" json:"toner_from_web"`

	Online              bool     `gorm:"column:online" json:"online"`
	ConditionText       string   `gorm:"column:condition_text" json:"condition_text"`
	ConditionSeverity   Severity `gorm:"column:condition_severity;type:varchar(10);default:unknown" json:"condition_severity"`
	ConditionBackground *string  `gorm:"column:condition_background" json:"condition_background"`

	LastPollAt *time.Time `gorm:"column:last_poll_at;index" json:"last_poll_at"`

	LastAlertAt       *time.Time `gorm:"column:last_alert_at" json:"last_alert_at"`
	LastAlertSeverity Severity   `gorm:"column:last_alert_severity;type:varchar(10)" json:"last_alert_severity"`

	ErrorLog []AlertLogEntry `gorm:"foreignKey:PrinterID;references:ID" json:"error_log"`

	Version   int64     `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Printer) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ConditionSeverity == "" {
		p.ConditionSeverity = SeverityUnknown
	}
	return nil
}

// NewestFirst returns a copy of p with the alert log reversed for display.
// The stored order is left alone.
func (p *Printer) NewestFirst() *Printer {
	view := *p
	view.ErrorLog = slices.Clone(p.ErrorLog)
	slices.Reverse(view.ErrorLog)
	return &view
}

// AlertLogEntry is one alert attempt. Rows are only ever inserted.
type AlertLogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PrinterID string    `gorm:"index;size:36" json:"-"`
	Severity  Severity  `gorm:"type:varchar(10);check:severity IN ('warning','error')" json:"severity"`
	Condition string    `json:"condition"`
	At        time.Time `gorm:"index" json:"at"`
	Notified  bool      `json:"notified"`
}
