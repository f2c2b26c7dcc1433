package alerts

import (
	"context"
	"sync"

	"github.com/aquanet/incident-service/internal/domain"
)

// PreferenceStore persists the user's sound preference across sessions and
// reconnects.
type PreferenceStore interface {
	// LoadSound returns the stored preference and whether one was found.
	LoadSound(ctx context.Context, userID string) (enabled, found bool, err error)
	SaveSound(ctx context.Context, userID string, enabled bool) error
}

// CuePlayer dispatches the audio cue for a severity. Implementations live in
// the presentation layer.
type CuePlayer interface {
	Play(severity domain.NotificationSeverity)
}

// Center tracks unread state and audio-cue dispatch for one staff client.
// At most one cue plays per delivery batch; when several notifications
// arrive together only the highest-severity cue plays.
type Center struct {
	userID string
	prefs  PreferenceStore
	player CuePlayer

	mu           sync.Mutex
	unread       map[string]struct{}
	soundEnabled bool
}

// NewCenter builds a center, loading the sound preference once at start.
func NewCenter(ctx context.Context, userID string, prefs PreferenceStore, player CuePlayer, soundDefault bool) (*Center, error) {
	c := &Center{
		userID:       userID,
		prefs:        prefs,
		player:       player,
		unread:       make(map[string]struct{}),
		soundEnabled: soundDefault,
	}
	if prefs != nil {
		enabled, found, err := prefs.LoadSound(ctx, userID)
		if err != nil {
			return nil, err
		}
		if found {
			c.soundEnabled = enabled
		}
	}
	return c, nil
}

// Ingest applies one delivery batch: unread counters update for every new
// notification and a single cue plays for the batch's highest severity.
func (c *Center) Ingest(batch []domain.Notification) {
	if len(batch) == 0 {
		return
	}
	c.mu.Lock()
	var loudest *domain.NotificationSeverity
	fresh := false
	for _, n := range batch {
		if n.Read {
			continue
		}
		if _, known := c.unread[n.ID]; known {
			continue
		}
		c.unread[n.ID] = struct{}{}
		fresh = true
		severity := n.Severity
		if loudest == nil || severity.Rank() > loudest.Rank() {
			loudest = &severity
		}
	}
	play := fresh && c.soundEnabled && c.player != nil && loudest != nil
	c.mu.Unlock()

	if play {
		c.player.Play(*loudest)
	}
}

// Unread returns the number of notifications not yet read.
func (c *Center) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.unread)
}

// MarkRead marks one notification read. Monotonic and idempotent; an unknown
// or already-read id is a no-op.
func (c *Center) MarkRead(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.unread, id)
}

// MarkAllRead clears the unread set. Idempotent.
func (c *Center) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unread = make(map[string]struct{})
}

// SoundEnabled reports the current sound preference.
func (c *Center) SoundEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.soundEnabled
}

// ToggleSound flips the preference and persists it.
func (c *Center) ToggleSound(ctx context.Context) (bool, error) {
	c.mu.Lock()
	c.soundEnabled = !c.soundEnabled
	enabled := c.soundEnabled
	c.mu.Unlock()

	if c.prefs != nil {
		if err := c.prefs.SaveSound(ctx, c.userID, enabled); err != nil {
			return enabled, err
		}
	}
	return enabled, nil
}
