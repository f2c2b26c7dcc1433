package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aquanet/incident-service/internal/domain"
	"github.com/aquanet/incident-service/internal/repository"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HubConfig tunes backlog and queue sizes.
type HubConfig struct {
	BacklogLimit  int
	SendQueueSize int
}

// Hub maintains the live feed of notifications to connected clients. Each
// subscriber receives a bounded backlog of recent unread notifications on
// connect, then new notifications in creation order. Duplicate delivery is
// possible around reconnects; clients deduplicate by id.
type Hub struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
	cfg           HubConfig

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	send chan domain.Notification
	done chan struct{}
	once sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() { close(c.done) })
}

// NewHub creates a hub.
func NewHub(notifications repository.NotificationRepository, logger *zap.Logger, cfg HubConfig) *Hub {
	if cfg.BacklogLimit <= 0 {
		cfg.BacklogLimit = 50
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 64
	}
	return &Hub{
		notifications: notifications,
		logger:        logger,
		cfg:           cfg,
		clients:       make(map[*hubClient]struct{}),
	}
}

// Broadcast queues a notification for every connected client. A client whose
// queue is full is dropped; it will reconnect and catch up from its cursor.
func (h *Hub) Broadcast(n domain.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- n:
		default:
			h.logger.Warn("dropping slow notification subscriber")
			delete(h.clients, client)
			client.close()
		}
	}
}

// RunRedisFeed consumes the redis pub/sub channel and broadcasts each
// notification locally. Blocks until ctx is cancelled.
func (h *Hub) RunRedisFeed(ctx context.Context, client *redis.Client) {
	sub := client.Subscribe(ctx, Channel)
	defer sub.Close() //nolint:errcheck

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var wire notificationWire
			if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
				h.logger.Warn("malformed notification payload", zap.Error(err))
				continue
			}
			h.Broadcast(wire.toDomain())
		}
	}
}

// HandleWS upgrades the request and streams notifications. The optional
// `after` query parameter is the last notification id the client saw;
// replay starts after it and never includes older entries.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close() //nolint:errcheck

	var afterID *string
	if after := r.URL.Query().Get("after"); after != "" {
		afterID = &after
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &hubClient{
		send: make(chan domain.Notification, h.cfg.SendQueueSize),
		done: make(chan struct{}),
	}

	// Register before the backlog query: a notification broadcast while
	// the query runs lands in the send queue instead of being lost. The
	// overlap can deliver such a notification twice, once from the
	// backlog and once live; clients dedup by id.
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		client.close()
	}()

	backlog, err := h.notifications.List(ctx, repository.NotificationFilter{
		AfterID:    afterID,
		UnreadOnly: true,
		Limit:      h.cfg.BacklogLimit,
	})
	if err != nil {
		h.logger.Error("backlog query failed", zap.Error(err))
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "backlog unavailable"), time.Now().Add(time.Second))
		return
	}

	for _, n := range backlog {
		if err := ws.WriteJSON(wireNotification(n)); err != nil {
			return
		}
	}

	// Reader goroutine detects client close.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case n := <-client.send:
			if err := ws.WriteJSON(wireNotification(n)); err != nil {
				return
			}
		}
	}
}

// SubscriberCount reports how many clients are connected.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
