package delivery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aquanet/incident-service/internal/domain"
)

// Channel is the redis pub/sub channel notifications fan out on.
const Channel = "incident:notifications"

// Publisher pushes a persisted notification towards connected clients.
// Durability precedes delivery: callers persist first, then publish.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

// RedisPublisher fans notifications out over redis pub/sub so every service
// instance's hub sees them.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher over the given client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish serializes the notification and publishes it on the channel.
func (p *RedisPublisher) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(wireNotification(n))
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Channel, payload).Err()
}

// HubPublisher delivers straight to a local hub, bypassing redis. Used when
// no redis is configured and by tests.
type HubPublisher struct {
	hub *Hub
}

// NewHubPublisher wraps a hub as a Publisher.
func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

// Publish broadcasts on the local hub.
func (p *HubPublisher) Publish(ctx context.Context, n domain.Notification) error {
	p.hub.Broadcast(n)
	return nil
}

// wire format shared by pub/sub and the websocket feed.
type notificationWire struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Severity       string    `json:"severity"`
	Read           bool      `json:"read"`
	ActionURL      *string   `json:"action_url,omitempty"`
	SourceReportID *string   `json:"source_report_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func wireNotification(n domain.Notification) notificationWire {
	return notificationWire{
		ID:             n.ID,
		Title:          n.Title,
		Message:        n.Message,
		Severity:       string(n.Severity),
		Read:           n.Read,
		ActionURL:      n.ActionURL,
		SourceReportID: n.SourceReportID,
		CreatedAt:      n.CreatedAt,
	}
}

func (w notificationWire) toDomain() domain.Notification {
	return domain.Notification{
		ID:             w.ID,
		Title:          w.Title,
		Message:        w.Message,
		Severity:       domain.NotificationSeverity(w.Severity),
		Read:           w.Read,
		ActionURL:      w.ActionURL,
		SourceReportID: w.SourceReportID,
		CreatedAt:      w.CreatedAt,
	}
}
