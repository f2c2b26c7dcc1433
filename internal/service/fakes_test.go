package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aquanet/incident-service/internal/domain"
	"github.com/aquanet/incident-service/internal/repository"
)

// fakeClock hands out strictly increasing timestamps so update ordering is
// observable in tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeReportRepo struct {
	mu      sync.Mutex
	clock   *fakeClock
	reports map[string]*domain.Report
}

func newFakeReportRepo(clock *fakeClock) *fakeReportRepo {
	return &fakeReportRepo{clock: clock, reports: make(map[string]*domain.Report)}
}

func cloneReport(r *domain.Report) *domain.Report {
	clone := *r
	clone.Timeline = append([]domain.TimelineEntry(nil), r.Timeline...)
	return &clone
}

func (f *fakeReportRepo) Create(ctx context.Context, report *domain.Report, first *domain.TimelineEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.clock.Now()
	report.ID = uuid.NewString()
	report.CreatedAt = now
	report.UpdatedAt = now
	first.ID = uuid.NewString()
	first.ReportID = report.ID
	first.CreatedAt = now
	report.Timeline = []domain.TimelineEntry{*first}
	f.reports[report.ID] = cloneReport(report)
	return nil
}

func (f *fakeReportRepo) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stored, ok := f.reports[id]; ok {
		return cloneReport(stored), nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeReportRepo) GetByTicketNumber(ctx context.Context, ticketNumber string) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.reports {
		if stored.TicketNumber == ticketNumber {
			return cloneReport(stored), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeReportRepo) ListWithFilter(ctx context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Report
	for _, stored := range f.reports {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, stored.Status) {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(*filter.SearchTerm)
			if !strings.Contains(strings.ToLower(stored.Description), term) &&
				!strings.Contains(strings.ToLower(stored.Area), term) &&
				!strings.Contains(strings.ToLower(stored.TicketNumber), term) {
				continue
			}
		}
		result = append(result, *cloneReport(stored))
	}
	return result, nil
}

func containsStatus(statuses []domain.ReportStatus, status domain.ReportStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (f *fakeReportRepo) ApplyUpdate(ctx context.Context, report *domain.Report, entry *domain.TimelineEntry, token time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.reports[report.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !stored.UpdatedAt.Equal(token) {
		return repository.ErrStaleToken
	}
	now := f.clock.Now()
	stored.Status = report.Status
	stored.AssignedTo = report.AssignedTo
	stored.Severity = report.Severity
	stored.UpdatedAt = now
	report.UpdatedAt = now
	if entry != nil {
		entry.ID = uuid.NewString()
		entry.ReportID = report.ID
		entry.CreatedAt = now
		stored.Timeline = append(stored.Timeline, *entry)
		report.Timeline = append(report.Timeline, *entry)
	}
	return nil
}

func (f *fakeReportRepo) ListTimeline(ctx context.Context, reportID string) ([]domain.TimelineEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stored, ok := f.reports[reportID]; ok {
		return append([]domain.TimelineEntry(nil), stored.Timeline...), nil
	}
	return nil, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	clock    *fakeClock
	messages []domain.Message
}

func newFakeMessageRepo(clock *fakeClock) *fakeMessageRepo {
	return &fakeMessageRepo{clock: clock}
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = f.clock.Now()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageRepo) ListByReport(ctx context.Context, reportID string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Message
	for _, msg := range f.messages {
		if msg.ReportID == reportID {
			result = append(result, msg)
		}
	}
	return result, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	clock         *fakeClock
	notifications []domain.Notification
}

func newFakeNotificationRepo(clock *fakeClock) *fakeNotificationRepo {
	return &fakeNotificationRepo{clock: clock}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = f.clock.Now()
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			n := f.notifications[i]
			return &n, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeNotificationRepo) List(ctx context.Context, filter repository.NotificationFilter) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := 0
	if filter.AfterID != nil && *filter.AfterID != "" {
		for i := range f.notifications {
			if f.notifications[i].ID == *filter.AfterID {
				start = i + 1
				break
			}
		}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var result []domain.Notification
	for _, n := range f.notifications[start:] {
		if filter.UnreadOnly && n.Read {
			continue
		}
		result = append(result, n)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].Read = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		f.notifications[i].Read = true
	}
	return nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for i := range f.notifications {
		if !f.notifications[i].Read {
			count++
		}
	}
	return count, nil
}

type fakeEscalationRepo struct {
	mu          sync.Mutex
	clock       *fakeClock
	escalations []domain.Escalation
}

func newFakeEscalationRepo(clock *fakeClock) *fakeEscalationRepo {
	return &fakeEscalationRepo{clock: clock}
}

func (f *fakeEscalationRepo) Create(ctx context.Context, esc *domain.Escalation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	esc.ID = uuid.NewString()
	esc.CreatedAt = f.clock.Now()
	f.escalations = append(f.escalations, *esc)
	return nil
}

func (f *fakeEscalationRepo) GetByID(ctx context.Context, id string) (*domain.Escalation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.escalations {
		if f.escalations[i].ID == id {
			esc := f.escalations[i]
			return &esc, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeEscalationRepo) List(ctx context.Context, openOnly bool) ([]domain.Escalation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Escalation
	for _, esc := range f.escalations {
		if openOnly && (esc.Acknowledged || esc.Resolved) {
			continue
		}
		result = append(result, esc)
	}
	return result, nil
}

func (f *fakeEscalationRepo) ListOpen(ctx context.Context) ([]domain.Escalation, error) {
	return f.List(ctx, true)
}

func (f *fakeEscalationRepo) Acknowledge(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.escalations {
		if f.escalations[i].ID == id {
			f.escalations[i].Acknowledged = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeEscalationRepo) MarkEscalated(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.escalations {
		if f.escalations[i].ID == id {
			escalatedAt := at
			f.escalations[i].EscalatedAt = &escalatedAt
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeEscalationRepo) ResolveByReport(ctx context.Context, reportID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.escalations {
		if f.escalations[i].ReportID == reportID {
			f.escalations[i].Resolved = true
		}
	}
	return nil
}

type fakeResponderRepo struct {
	mu         sync.Mutex
	responders map[string]domain.Responder
}

func newFakeResponderRepo() *fakeResponderRepo {
	return &fakeResponderRepo{responders: make(map[string]domain.Responder)}
}

func (f *fakeResponderRepo) add(name string, active bool) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	f.responders[id] = domain.Responder{ID: id, Name: name, Phone: "555-0100", Active: active}
	return id
}

func (f *fakeResponderRepo) GetByID(ctx context.Context, id string) (*domain.Responder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if responder, ok := f.responders[id]; ok {
		return &responder, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeResponderRepo) ListActive(ctx context.Context) ([]domain.Responder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Responder
	for _, responder := range f.responders {
		if responder.Active {
			result = append(result, responder)
		}
	}
	return result, nil
}

// capturingPublisher records published notifications in order.
type capturingPublisher struct {
	mu        sync.Mutex
	published []domain.Notification
	err       error
}

func (p *capturingPublisher) Publish(ctx context.Context, n domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, n)
	return nil
}

func (p *capturingPublisher) all() []domain.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Notification(nil), p.published...)
}
