package monitor_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/printwatch-service/pkg/db"
	"liyu1981.xyz/printwatch-service/pkg/device"
	"liyu1981.xyz/printwatch-service/pkg/models"
	"liyu1981.xyz/printwatch-service/pkg/monitor"
	"liyu1981.xyz/printwatch-service/pkg/monitor/mocks"
	"liyu1981.xyz/printwatch-service/pkg/notify"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeReader struct {
	snaps map[string]device.Snapshot
}

func (f *fakeReader) Fetch(ctx context.Context, ip string) device.Snapshot {
	if snap, ok := f.snaps[ip]; ok {
		return snap
	}
	return device.Snapshot{Condition: device.Condition{Severity: models.SeverityUnknown}}
}

type fakeNotifier struct {
	mu      sync.Mutex
	enabled bool
	err     error
	alerts  []notify.Alert
}

func (f *fakeNotifier) Enabled() bool { return f.enabled }

func (f *fakeNotifier) NotifyAlert(ctx context.Context, alert notify.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	if f.err != nil {
		return &notify.MailError{Recipients: alert.Recipients, Err: f.err}
	}
	return nil
}

func (f *fakeNotifier) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeNotifier) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
}

func (f *fakePublisher) PublishState(ctx context.Context, p *models.Printer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, p.ID)
	return nil
}

type fixture struct {
	monitor  *monitor.Monitor
	store    *db.Store
	clock    *testClock
	reader   *fakeReader
	notifier *fakeNotifier
}

// newFixture wires a monitor over a private in-memory database with an
// enabled notifier and a fixed clock.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	instance, err := db.Open(db.UseIsolatedMemorySqliteDialector())
	require.NoError(t, err)
	store := db.NewStore(instance)

	f := &fixture{
		store:    store,
		clock:    &testClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)},
		reader:   &fakeReader{snaps: map[string]device.Snapshot{}},
		notifier: &fakeNotifier{enabled: true},
	}

	m := &monitor.Monitor{
		Store:       store,
		Departments: store,
		Users:       store,
		Reader:      f.reader,
		Notifier:    f.notifier,
		Cooldown:    60 * time.Minute,
		Concurrency: 8,
		Now:         f.clock.Now,
	}
	m.WithServices(monitor.ServiceOpts{
		Poller: m.GetIPoller(),
		Gate:   m.GetIGate(),
	})
	f.monitor = m

	return f
}

func (f *fixture) withMockGate(t *testing.T) *mocks.MockIGate {
	ctrl := gomock.NewController(t)
	gate := mocks.NewMockIGate(ctrl)
	f.monitor.WithServices(monitor.ServiceOpts{Gate: gate})
	return gate
}

func (f *fixture) withMockPoller(t *testing.T) *mocks.MockIPoller {
	ctrl := gomock.NewController(t)
	poller := mocks.NewMockIPoller(ctrl)
	f.monitor.WithServices(monitor.ServiceOpts{Poller: poller})
	return poller
}

// department creates a department whose users have the given emails.
func (f *fixture) department(t *testing.T, name string, emails ...string) string {
	t.Helper()
	dept := models.Department{Name: name}
	require.NoError(t, f.store.Conn.Create(&dept).Error)
	for i, email := range emails {
		user := models.User{Username: name + "-" + string(rune('a'+i)), Email: &email, DepartmentID: &dept.ID}
		require.NoError(t, f.store.Conn.Create(&user).Error)
	}
	return dept.ID
}

func (f *fixture) printer(t *testing.T, ip string, departmentID string) *models.Printer {
	t.Helper()
	p := &models.Printer{IPAddress: ip}
	if departmentID != "" {
		p.DepartmentID = &departmentID
	}
	require.NoError(t, f.store.CreatePrinter(context.Background(), p))
	return p
}

func (f *fixture) reload(t *testing.T, id string) *models.Printer {
	t.Helper()
	p, err := f.store.GetPrinter(context.Background(), id)
	require.NoError(t, err)
	return p
}

func onlineSnapshot(severity models.Severity, text string) device.Snapshot {
	pages := int64(1200)
	toner := int64(40)
	return device.Snapshot{
		Online:      true,
		PageCounter: &pages,
		TonerLevel:  &toner,
		Condition:   device.Condition{Severity: severity, Text: text},
	}
}

func ParseLogs(r io.Reader) []map[string]any {
	scanner := bufio.NewScanner(r)
	var logs []map[string]any

	for scanner.Scan() {
		var j map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

func findLog(logs []map[string]any, match func(map[string]any) bool) bool {
	for _, l := range logs {
		if match(l) {
			return true
		}
	}
	return false
}
