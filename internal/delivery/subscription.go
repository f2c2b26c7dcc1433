package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aquanet/incident-service/internal/domain"
)

// PollFunc fetches notifications created after the given id. It backs the
// degraded polling mode when the live connection is down.
type PollFunc func(ctx context.Context, afterID string) ([]domain.Notification, error)

// SubscriptionConfig tunes the client-side subscription.
type SubscriptionConfig struct {
	// WSURL is the websocket endpoint, e.g. ws://host:port/ws/notifications.
	WSURL        string
	PollInterval time.Duration
	// MaxBackoff caps the reconnect delay.
	MaxBackoff time.Duration
	BufferSize int
	// DedupWindow is how many recent notification ids are remembered for
	// duplicate suppression. Redelivery only happens around reconnects, so
	// the window needs to cover one backlog, not the whole session.
	DedupWindow int
}

// Subscription is a staff client's handle on the delivery channel. It
// prefers the live websocket feed and transparently degrades to periodic
// polling while the connection is down; the two modes never run at once.
// Duplicates across the handoff are removed by id before they reach the
// output channel, and notifications arrive in creation order.
type Subscription struct {
	cfg    SubscriptionConfig
	poll   PollFunc
	logger *zap.Logger

	out    chan domain.Notification
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	live      bool
	lastID    string
	seen      map[string]struct{}
	seenOrder []string
}

// NewSubscription builds a subscription; Start begins consuming.
func NewSubscription(cfg SubscriptionConfig, poll PollFunc, logger *zap.Logger) *Subscription {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 2048
	}
	return &Subscription{
		cfg:    cfg,
		poll:   poll,
		logger: logger,
		out:    make(chan domain.Notification, cfg.BufferSize),
		seen:   make(map[string]struct{}),
	}
}

// Notifications is the ordered, deduplicated feed.
func (s *Subscription) Notifications() <-chan domain.Notification {
	return s.out
}

// Live reports whether the websocket connection is currently up; false means
// the subscription is in degraded polling mode.
func (s *Subscription) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// LastID returns the id of the most recent notification delivered.
func (s *Subscription) LastID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

// Start launches the consume loop. Close stops it; no further side effects
// occur after Close returns.
func (s *Subscription) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.out)
		s.run(ctx)
	}()
}

// Close stops the live feed and the polling fallback.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Subscription) run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		connected, err := s.consumeLive(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("live feed unavailable, degrading to polling", zap.Error(err))
		}
		s.setLive(false)
		if connected {
			backoff = time.Second
		}

		// Degraded mode: one poll per backoff window until redial succeeds.
		// The cap keeps the polling cadence in the tens of seconds.
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		s.pollOnce(ctx)

		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

func (s *Subscription) consumeLive(ctx context.Context) (bool, error) {
	dialURL, err := s.urlWithCursor()
	if err != nil {
		return false, err
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		return false, err
	}
	defer ws.Close() //nolint:errcheck

	s.setLive(true)
	go func() {
		<-ctx.Done()
		_ = ws.Close()
	}()

	for {
		var wire notificationWire
		if err := ws.ReadJSON(&wire); err != nil {
			return true, err
		}
		s.deliver(ctx, wire.toDomain())
	}
}

func (s *Subscription) pollOnce(ctx context.Context) {
	if s.poll == nil {
		return
	}
	pollCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	batch, err := s.poll(pollCtx, s.LastID())
	if err != nil {
		s.logger.Warn("notification poll failed", zap.Error(err))
		return
	}
	for _, n := range batch {
		s.deliver(ctx, n)
	}
}

// deliver forwards a notification unless its id was already seen. The seen
// set is capped at DedupWindow ids; when it fills, the oldest half is
// evicted so memory stays bounded over long sessions.
func (s *Subscription) deliver(ctx context.Context, n domain.Notification) {
	s.mu.Lock()
	if _, dup := s.seen[n.ID]; dup {
		s.mu.Unlock()
		return
	}
	if len(s.seenOrder) >= s.cfg.DedupWindow {
		half := s.cfg.DedupWindow / 2
		for _, old := range s.seenOrder[:half] {
			delete(s.seen, old)
		}
		s.seenOrder = append([]string(nil), s.seenOrder[half:]...)
	}
	s.seen[n.ID] = struct{}{}
	s.seenOrder = append(s.seenOrder, n.ID)
	s.lastID = n.ID
	s.mu.Unlock()

	select {
	case s.out <- n:
	case <-ctx.Done():
	}
}

func (s *Subscription) setLive(live bool) {
	s.mu.Lock()
	s.live = live
	s.mu.Unlock()
}

func (s *Subscription) urlWithCursor() (string, error) {
	parsed, err := url.Parse(s.cfg.WSURL)
	if err != nil {
		return "", err
	}
	if last := s.LastID(); last != "" {
		q := parsed.Query()
		q.Set("after", last)
		parsed.RawQuery = q.Encode()
	}
	return parsed.String(), nil
}

// NewHTTPPoller returns a PollFunc backed by the staff notifications
// endpoint, for use as the degraded-mode transport.
func NewHTTPPoller(baseURL string, client *http.Client) PollFunc {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return func(ctx context.Context, afterID string) ([]domain.Notification, error) {
		endpoint := fmt.Sprintf("%s/staff/notifications", baseURL)
		if afterID != "" {
			endpoint += "?after=" + url.QueryEscape(afterID)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close() //nolint:errcheck
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("poll: unexpected status %d", resp.StatusCode)
		}
		var body struct {
			Data []notificationWire `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, err
		}
		result := make([]domain.Notification, 0, len(body.Data))
		for _, wire := range body.Data {
			result = append(result, wire.toDomain())
		}
		return result, nil
	}
}
