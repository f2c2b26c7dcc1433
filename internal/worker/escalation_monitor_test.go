package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aquanet/incident-service/internal/domain"
	"github.com/aquanet/incident-service/internal/events"
	"github.com/aquanet/incident-service/internal/observability"
	"github.com/aquanet/incident-service/internal/repository"
)

type memEscalations struct {
	mu   sync.Mutex
	recs []domain.Escalation
}

func (m *memEscalations) Create(ctx context.Context, esc *domain.Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if esc.ID == "" {
		esc.ID = uuid.NewString()
	}
	m.recs = append(m.recs, *esc)
	return nil
}

func (m *memEscalations) GetByID(ctx context.Context, id string) (*domain.Escalation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id {
			esc := m.recs[i]
			return &esc, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memEscalations) List(ctx context.Context, openOnly bool) ([]domain.Escalation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Escalation
	for _, esc := range m.recs {
		if openOnly && (esc.Acknowledged || esc.Resolved) {
			continue
		}
		result = append(result, esc)
	}
	return result, nil
}

func (m *memEscalations) ListOpen(ctx context.Context) ([]domain.Escalation, error) {
	return m.List(ctx, true)
}

func (m *memEscalations) Acknowledge(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id {
			m.recs[i].Acknowledged = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memEscalations) MarkEscalated(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id {
			stamp := at
			m.recs[i].EscalatedAt = &stamp
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memEscalations) ResolveByReport(ctx context.Context, reportID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ReportID == reportID {
			m.recs[i].Resolved = true
		}
	}
	return nil
}

type memNotifications struct {
	mu   sync.Mutex
	recs []domain.Notification
}

func (m *memNotifications) Create(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now()
	m.recs = append(m.recs, *n)
	return nil
}

func (m *memNotifications) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id {
			n := m.recs[i]
			return &n, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memNotifications) List(ctx context.Context, filter repository.NotificationFilter) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.recs...), nil
}

func (m *memNotifications) MarkRead(ctx context.Context, id string) error { return nil }
func (m *memNotifications) MarkAllRead(ctx context.Context) error         { return nil }
func (m *memNotifications) CountUnread(ctx context.Context) (int, error)  { return 0, nil }

type capturingPublisher struct {
	mu        sync.Mutex
	published []domain.Notification
}

func (p *capturingPublisher) Publish(ctx context.Context, n domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, n)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type stubLocker struct {
	acquired bool
	err      error
	releases int
}

func (l *stubLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.acquired, l.err
}

func (l *stubLocker) Release(ctx context.Context, key string) error {
	l.releases++
	return nil
}

type monitorFixture struct {
	monitor       *EscalationMonitor
	escalations   *memEscalations
	notifications *memNotifications
	publisher     *capturingPublisher
	clock         time.Time
}

func newMonitorFixture(t *testing.T, locker Locker) *monitorFixture {
	t.Helper()
	fx := &monitorFixture{
		escalations:   &memEscalations{},
		notifications: &memNotifications{},
		publisher:     &capturingPublisher{},
		clock:         time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC),
	}
	fx.monitor = NewEscalationMonitor(MonitorDependencies{
		EscalationRepo:   fx.escalations,
		NotificationRepo: fx.notifications,
		Publisher:        fx.publisher,
		Locker:           locker,
		Logger:           zap.NewNop(),
		Metrics:          observability.NewMetrics(),
		Interval:         30 * time.Second,
		Threshold:        5 * time.Minute,
		ScanTimeout:      25 * time.Second,
	}).WithNow(func() time.Time { return fx.clock })
	return fx
}

func (fx *monitorFixture) seedCritical(t *testing.T, reportID string) domain.Escalation {
	t.Helper()
	ctx := context.Background()
	notification := &domain.Notification{
		Title:    "Critical burst reported",
		Message:  "Report WTR-AAAA1111: critical burst in North District requires immediate review",
		Severity: domain.NotifyCritical,
	}
	require.NoError(t, fx.notifications.Create(ctx, notification))
	esc := &domain.Escalation{
		NotificationID: notification.ID,
		ReportID:       reportID,
		CreatedAt:      fx.clock,
	}
	require.NoError(t, fx.escalations.Create(ctx, esc))
	return *esc
}

func TestMonitorFiresOncePerThresholdWindow(t *testing.T) {
	fx := newMonitorFixture(t, nil)
	ctx := context.Background()
	fx.seedCritical(t, "report-1")

	// Inside the window: nothing fires.
	fx.clock = fx.clock.Add(4 * time.Minute)
	fx.monitor.RunOnce(ctx)
	assert.Zero(t, fx.publisher.count())

	// Past the window: exactly one repeat.
	fx.clock = fx.clock.Add(2 * time.Minute)
	fx.monitor.RunOnce(ctx)
	require.Equal(t, 1, fx.publisher.count())

	// Immediately after firing the window restarts.
	fx.monitor.RunOnce(ctx)
	assert.Equal(t, 1, fx.publisher.count())

	// The next window elapses and it fires again.
	fx.clock = fx.clock.Add(6 * time.Minute)
	fx.monitor.RunOnce(ctx)
	assert.Equal(t, 2, fx.publisher.count())
}

func TestMonitorRepeatCarriesOriginalContext(t *testing.T) {
	fx := newMonitorFixture(t, nil)
	ctx := context.Background()
	fx.seedCritical(t, "report-1")

	fx.clock = fx.clock.Add(6 * time.Minute)
	fx.monitor.RunOnce(ctx)

	require.Equal(t, 1, fx.publisher.count())
	repeat := fx.publisher.published[0]
	assert.Equal(t, "Escalated: Critical burst reported", repeat.Title)
	assert.Equal(t, domain.NotifyCritical, repeat.Severity)
	assert.Contains(t, repeat.Message, "still unacknowledged")
}

func TestAcknowledgedEscalationNeverFires(t *testing.T) {
	fx := newMonitorFixture(t, nil)
	ctx := context.Background()
	esc := fx.seedCritical(t, "report-1")
	require.NoError(t, fx.escalations.Acknowledge(ctx, esc.ID))

	fx.clock = fx.clock.Add(time.Hour)
	fx.monitor.RunOnce(ctx)

	assert.Zero(t, fx.publisher.count())
}

func TestResolvedReportStopsEscalation(t *testing.T) {
	fx := newMonitorFixture(t, nil)
	ctx := context.Background()
	fx.seedCritical(t, "report-1")

	dispatcher := events.NewInMemoryDispatcher()
	fx.monitor.RegisterHandlers(dispatcher)
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:     events.EventReportStatusChanged,
		ReportID: "report-1",
		Payload: events.ReportStatusChangedPayload{
			OldStatus: domain.StatusInProgress,
			NewStatus: domain.StatusResolved,
		},
	}))

	fx.clock = fx.clock.Add(time.Hour)
	fx.monitor.RunOnce(ctx)

	assert.Zero(t, fx.publisher.count())
}

func TestMalformedRecordDoesNotStopTheBatch(t *testing.T) {
	fx := newMonitorFixture(t, nil)
	ctx := context.Background()

	// An escalation pointing at a notification that no longer exists.
	require.NoError(t, fx.escalations.Create(ctx, &domain.Escalation{
		NotificationID: "gone",
		ReportID:       "report-0",
		CreatedAt:      fx.clock,
	}))
	fx.seedCritical(t, "report-1")

	fx.clock = fx.clock.Add(6 * time.Minute)
	fx.monitor.RunOnce(ctx)

	assert.Equal(t, 1, fx.publisher.count())
}

func TestMonitorSkipsWhenLeaseHeldElsewhere(t *testing.T) {
	fx := newMonitorFixture(t, &stubLocker{acquired: false})
	ctx := context.Background()
	fx.seedCritical(t, "report-1")

	fx.clock = fx.clock.Add(time.Hour)
	fx.monitor.RunOnce(ctx)

	assert.Zero(t, fx.publisher.count())
}

func TestMonitorProceedsWhenLeaseUnavailable(t *testing.T) {
	locker := &stubLocker{err: assert.AnError}
	fx := newMonitorFixture(t, locker)
	ctx := context.Background()
	fx.seedCritical(t, "report-1")

	fx.clock = fx.clock.Add(time.Hour)
	fx.monitor.RunOnce(ctx)

	// A broken lease store degrades to single-instance behavior.
	assert.Equal(t, 1, fx.publisher.count())
	assert.Zero(t, locker.releases)
}

func TestMonitorReleasesLeaseAfterScan(t *testing.T) {
	locker := &stubLocker{acquired: true}
	fx := newMonitorFixture(t, locker)
	ctx := context.Background()
	fx.seedCritical(t, "report-1")

	fx.clock = fx.clock.Add(time.Hour)
	fx.monitor.RunOnce(ctx)

	assert.Equal(t, 1, fx.publisher.count())
	assert.Equal(t, 1, locker.releases)
}
