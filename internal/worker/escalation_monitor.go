package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aquanet/incident-service/internal/delivery"
	"github.com/aquanet/incident-service/internal/domain"
	"github.com/aquanet/incident-service/internal/events"
	"github.com/aquanet/incident-service/internal/observability"
	"github.com/aquanet/incident-service/internal/repository"
)

// Locker guards the scan so overlapping passes (slow pass vs next tick, or
// multiple service instances) cannot run at once.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

const lockKey = "incident:escalation-monitor:lease"

// EscalationMonitor periodically re-alerts on unacknowledged critical
// notifications. An escalation fires at most once per threshold window and
// never once acknowledged or resolved.
type EscalationMonitor struct {
	escalations   repository.EscalationRepository
	notifications repository.NotificationRepository
	publisher     delivery.Publisher
	locker        Locker
	logger        *zap.Logger
	metrics       *observability.Metrics

	interval    time.Duration
	threshold   time.Duration
	scanTimeout time.Duration

	now     func() time.Time
	running atomic.Bool
	wg      sync.WaitGroup
}

// MonitorDependencies bundles dependencies.
type MonitorDependencies struct {
	EscalationRepo   repository.EscalationRepository
	NotificationRepo repository.NotificationRepository
	Publisher        delivery.Publisher
	Locker           Locker
	Logger           *zap.Logger
	Metrics          *observability.Metrics

	Interval    time.Duration
	Threshold   time.Duration
	ScanTimeout time.Duration
}

// NewEscalationMonitor creates the monitor.
func NewEscalationMonitor(deps MonitorDependencies) *EscalationMonitor {
	m := &EscalationMonitor{
		escalations:   deps.EscalationRepo,
		notifications: deps.NotificationRepo,
		publisher:     deps.Publisher,
		locker:        deps.Locker,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		interval:      deps.Interval,
		threshold:     deps.Threshold,
		scanTimeout:   deps.ScanTimeout,
		now:           time.Now,
	}
	if m.interval <= 0 {
		m.interval = 30 * time.Second
	}
	if m.threshold <= 0 {
		m.threshold = 5 * time.Minute
	}
	if m.scanTimeout <= 0 {
		m.scanTimeout = m.interval
	}
	return m
}

// RegisterHandlers subscribes the monitor to status changes so escalations
// resolve when their report reaches resolved or closed.
func (m *EscalationMonitor) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventReportStatusChanged, m.handleStatusChanged)
}

func (m *EscalationMonitor) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReportStatusChangedPayload)
	if !ok {
		return nil
	}
	if payload.NewStatus != domain.StatusResolved && payload.NewStatus != domain.StatusClosed {
		return nil
	}
	if err := m.escalations.ResolveByReport(ctx, event.ReportID); err != nil {
		m.logger.Error("failed to resolve escalations", zap.Error(err), zap.String("report_id", event.ReportID))
		return err
	}
	return nil
}

// Start runs the tick loop until ctx is cancelled.
func (m *EscalationMonitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.RunOnce(ctx)
			}
		}
	}()
}

// Wait blocks until the tick loop has exited.
func (m *EscalationMonitor) Wait() {
	m.wg.Wait()
}

// RunOnce performs one time-boxed scan. A pass still in flight, locally or
// on another instance, causes the call to return immediately.
func (m *EscalationMonitor) RunOnce(ctx context.Context) {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Debug("escalation scan still running, skipping tick")
		return
	}
	defer m.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, m.scanTimeout)
	defer cancel()

	if m.locker != nil {
		acquired, err := m.locker.TryAcquire(ctx, lockKey, m.interval)
		if err != nil {
			m.logger.Warn("escalation lease unavailable, proceeding without it", zap.Error(err))
		} else if !acquired {
			return
		} else {
			defer func() {
				if err := m.locker.Release(context.WithoutCancel(ctx), lockKey); err != nil {
					m.logger.Warn("failed to release escalation lease", zap.Error(err))
				}
			}()
		}
	}

	m.scan(ctx)
}

func (m *EscalationMonitor) scan(ctx context.Context) {
	open, err := m.escalations.ListOpen(ctx)
	if err != nil {
		m.logger.Error("escalation scan failed", zap.Error(err))
		return
	}

	now := m.now()
	for _, esc := range open {
		if err := ctx.Err(); err != nil {
			return
		}
		if !m.due(esc, now) {
			continue
		}
		// A single malformed record must not stop the batch.
		if err := m.escalate(ctx, esc, now); err != nil {
			m.logger.Error("failed to escalate, skipping record",
				zap.Error(err), zap.String("escalation_id", esc.ID))
		}
	}
}

// due reports whether the escalation has sat unacknowledged past the
// threshold, measured from the last escalation or from creation.
func (m *EscalationMonitor) due(esc domain.Escalation, now time.Time) bool {
	since := esc.CreatedAt
	if esc.EscalatedAt != nil {
		since = *esc.EscalatedAt
	}
	return now.Sub(since) > m.threshold
}

func (m *EscalationMonitor) escalate(ctx context.Context, esc domain.Escalation, now time.Time) error {
	original, err := m.notifications.GetByID(ctx, esc.NotificationID)
	if err != nil {
		return fmt.Errorf("load original notification: %w", err)
	}

	repeat := &domain.Notification{
		Title:          "Escalated: " + original.Title,
		Message:        original.Message + " (still unacknowledged)",
		Severity:       domain.NotifyCritical,
		ActionURL:      original.ActionURL,
		SourceReportID: original.SourceReportID,
	}
	if err := m.notifications.Create(ctx, repeat); err != nil {
		return fmt.Errorf("persist repeat notification: %w", err)
	}
	if err := m.escalations.MarkEscalated(ctx, esc.ID, now); err != nil {
		return fmt.Errorf("mark escalated: %w", err)
	}
	m.metrics.RecordEscalation()

	if m.publisher != nil {
		if err := m.publisher.Publish(ctx, *repeat); err != nil {
			m.logger.Warn("escalation delivery failed; pollers will catch up", zap.Error(err))
		}
	}
	m.logger.Info("escalated unacknowledged critical notification",
		zap.String("escalation_id", esc.ID),
		zap.String("report_id", esc.ReportID))
	return nil
}

// WithNow overrides the clock. Test hook.
func (m *EscalationMonitor) WithNow(now func() time.Time) *EscalationMonitor {
	m.now = now
	return m
}
