package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/printwatch-service/pkg/common"
	"liyu1981.xyz/printwatch-service/pkg/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateIP     = errors.New("ip address already registered")
	ErrVersionConflict = errors.New("printer changed concurrently, giving up")
)

const maxWriteAttempts = 3

// Store implements the printer store, department lookup and user directory on
// top of gorm.
type Store struct {
	Conn *gorm.DB
}

func NewStore(d *DB) *Store {
	return &Store{Conn: d.Conn}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Store) CreatePrinter(ctx context.Context, p *models.Printer) error {
	var count int64
	if err := s.Conn.WithContext(ctx).Model(&models.Printer{}).
		Where("ip_address = ?", p.IPAddress).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateIP
	}
	return s.Conn.WithContext(ctx).Create(p).Error
}

// UpdatePrinterIdentity is the inventory edit path. It bumps the version so an
// in-flight poll write notices and re-reads these fields instead of
// overwriting them.
func (s *Store) UpdatePrinterIdentity(ctx context.Context, id, ip string, departmentID *string) error {
	var count int64
	if err := s.Conn.WithContext(ctx).Model(&models.Printer{}).
		Where("ip_address = ? AND id <> ?", ip, id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateIP
	}

	res := s.Conn.WithContext(ctx).Model(&models.Printer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"ip_address":    ip,
			"department_id": departmentID,
			"version":       gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeletePrinter(ctx context.Context, id string) error {
	return s.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("printer_id = ?", id).Delete(&models.AlertLogEntry{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Printer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListPrinters returns the fleet, or one department's share of it when
// departmentID is non-empty. The alert log is not loaded.
func (s *Store) ListPrinters(ctx context.Context, departmentID string) ([]models.Printer, error) {
	var printers []models.Printer
	q := s.Conn.WithContext(ctx).Order("ip_address")
	if departmentID != "" {
		q = q.Where("department_id = ?", departmentID)
	}
	err := q.Find(&printers).Error
	return printers, err
}

// GetPrinter loads one printer with its alert log, oldest entry first.
func (s *Store) GetPrinter(ctx context.Context, id string) (*models.Printer, error) {
	var p models.Printer
	err := s.Conn.WithContext(ctx).
		Preload("ErrorLog", func(db *gorm.DB) *gorm.DB {
			return db.Order("at asc, id asc")
		}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// LastPollAt is the most recent poll time in the scope, nil if nothing was
// polled yet.
func (s *Store) LastPollAt(ctx context.Context, departmentID string) (*time.Time, error) {
	var p models.Printer
	q := s.Conn.WithContext(ctx).Select("last_poll_at").
		Where("last_poll_at IS NOT NULL").
		Order("last_poll_at desc")
	if departmentID != "" {
		q = q.Where("department_id = ?", departmentID)
	}
	err := q.Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.LastPollAt, nil
}

func telemetryColumns(p *models.Printer) map[string]any {
	return map[string]any{
		"online":               p.Online,
		"printer_type":         p.PrinterType,
		"serial_number":        p.SerialNumber,
		"drum_unit_level":      p.DrumUnitLevel,
		"page_counter":         p.PageCounter,
		"toner_level":          p.TonerLevel,
		"toner_from_web":       p.TonerFromWeb,
		"condition_text":       p.ConditionText,
		"condition_severity":   p.ConditionSeverity,
		"condition_background": p.ConditionBackground,
		"last_poll_at":         p.LastPollAt,
	}
}

func alertStateColumns(p *models.Printer) map[string]any {
	return map[string]any{
		"last_alert_at":       p.LastAlertAt,
		"last_alert_severity": p.LastAlertSeverity,
	}
}

// updateVersioned writes cols guarded by the record version. On a conflict
// the identity fields are refreshed from the row and the write is retried,
// so only the columns this core owns are ever overwritten.
func updateVersioned(tx *gorm.DB, p *models.Printer, cols func(*models.Printer) map[string]any) error {
	for range maxWriteAttempts {
		values := cols(p)
		values["version"] = p.Version + 1

		res := tx.Model(&models.Printer{}).
			Where("id = ? AND version = ?", p.ID, p.Version).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			p.Version++
			return nil
		}

		var latest models.Printer
		err := tx.Select("id", "ip_address", "department_id", "version").
			First(&latest, "id = ?", p.ID).Error
		if err != nil {
			return notFound(err)
		}

		common.GetCoreLogger(common.LoggerCategoryStore).Info("Printer version conflict, retrying",
			zap.String("printer_id", p.ID),
			zap.Int64("expected", p.Version),
			zap.Int64("actual", latest.Version))

		p.IPAddress = latest.IPAddress
		p.DepartmentID = latest.DepartmentID
		p.Version = latest.Version
	}
	return ErrVersionConflict
}

// SaveTelemetry persists the telemetry, health and freshness fields.
func (s *Store) SaveTelemetry(ctx context.Context, p *models.Printer) error {
	return updateVersioned(s.Conn.WithContext(ctx), p, telemetryColumns)
}

// RecordAlert appends entry to the printer's alert log and, when the entry
// was delivered, moves the alert state. The entry is committed first, so a
// failed state update still leaves the attempt in the log.
func (s *Store) RecordAlert(ctx context.Context, p *models.Printer, entry *models.AlertLogEntry) error {
	entry.PrinterID = p.ID
	conn := s.Conn.WithContext(ctx)
	if err := conn.Create(entry).Error; err != nil {
		return fmt.Errorf("append alert log: %w", err)
	}
	if !entry.Notified {
		return nil
	}
	if err := updateVersioned(conn, p, alertStateColumns); err != nil {
		return fmt.Errorf("update alert state: %w", err)
	}
	return nil
}

func (s *Store) DepartmentName(ctx context.Context, id string) (string, error) {
	var d models.Department
	if err := s.Conn.WithContext(ctx).Select("id", "name").First(&d, "id = ?", id).Error; err != nil {
		return "", notFound(err)
	}
	return d.Name, nil
}

// DepartmentEmails returns the distinct non-empty emails of the department's
// users.
func (s *Store) DepartmentEmails(ctx context.Context, id string) ([]string, error) {
	var emails []string
	err := s.Conn.WithContext(ctx).Model(&models.User{}).
		Where("department_id = ? AND email IS NOT NULL AND email <> ''", id).
		Order("email").
		Distinct().
		Pluck("email", &emails).Error
	if err != nil {
		return nil, err
	}
	return common.Distinct(emails), nil
}
