package notification

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-notify/internal/device"
	"github.com/nerrad567/gray-logic-notify/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-notify/migrations"
)

// epoch is the fixed start of every test clock.
var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// openTestDB opens a migrated database file at path.
func openTestDB(t *testing.T, path string) *database.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: path, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	return NewSQLiteRepository(openTestDB(t, filepath.Join(t.TempDir(), "notify.db")).DB)
}

// testResolver knows D1 (current number 1001, legacy number A-17) and D2.
func testResolver(t *testing.T) device.Resolver {
	t.Helper()
	r, err := device.NewStaticResolver(
		device.Device{ID: "D1", Number: "1001", OldNumber: "A-17"},
		device.Device{ID: "D2", Number: "1002"},
	)
	if err != nil {
		t.Fatalf("NewStaticResolver() error = %v", err)
	}
	return r
}

type testEnv struct {
	svc   *Service
	repo  *SQLiteRepository
	clock *fakeClock
}

func setupTestService(t *testing.T, mutate ...func(*ServiceConfig)) *testEnv {
	t.Helper()

	env := &testEnv{repo: setupTestRepo(t), clock: newFakeClock()}
	cfg := ServiceConfig{
		Repository: env.repo,
		Resolver:   testResolver(t),
		Now:        env.clock.Now,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	env.svc = NewService(cfg)
	return env
}

// send enqueues and fails the test on error.
func (e *testEnv) send(t *testing.T, target, messageType, payload string) int64 {
	t.Helper()
	id, err := e.svc.Send(context.Background(), target, messageType, payload)
	if err != nil {
		t.Fatalf("Send(%q, %q) error = %v", target, payload, err)
	}
	return id
}

func payloads(deliveries []Delivery) []string {
	out := make([]string, len(deliveries))
	for i, d := range deliveries {
		out[i] = d.Payload
	}
	return out
}

// recordingLogger captures log lines for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) record(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s %v", level, msg, args))
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args...) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args...) }

func (l *recordingLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// recordingMetrics captures written points.
type recordingMetrics struct {
	mu     sync.Mutex
	points []string
	fields []map[string]any
}

func (m *recordingMetrics) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, fmt.Sprintf("%s,event=%s", measurement, tags["event"]))
	m.fields = append(m.fields, fields)
}
