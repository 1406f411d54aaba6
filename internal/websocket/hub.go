package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"chat-backend/internal/models"
)

// EventsChannel is the Redis pub/sub channel carrying conversation events.
const EventsChannel = "conversation_updates"

const (
	sendQueueSize = 64
	writeWait     = 10 * time.Second
)

// client owns one connection. Only its writePump writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub pushes conversation events to connected browsers. With a Redis client,
// events are published to EventsChannel and every server process relays them
// to its own connections; without one they are broadcast in-process.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	publisher  *redis.Client
	subscriber *redis.Client
	upgrader   websocket.Upgrader
	cancel     context.CancelFunc
}

// NewHub creates a hub. publisher and subscriber are either both set or both
// nil; allowedOrigin restricts browser upgrades ("*" allows any).
func NewHub(publisher, subscriber *redis.Client, allowedOrigin string) *Hub {
	h := &Hub{
		clients:    make(map[*client]struct{}),
		publisher:  publisher,
		subscriber: subscriber,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
		},
	}
	return h
}

// Start subscribes to EventsChannel and relays its events until Stop. It
// returns once the subscription is confirmed, and is a no-op without Redis.
func (h *Hub) Start() error {
	if h.subscriber == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())

	pubsub := h.subscriber.Subscribe(ctx, EventsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", EventsChannel, err)
	}

	h.cancel = cancel
	go h.relay(ctx, pubsub)
	return nil
}

// Stop ends the Redis relay and closes every connection.
func (h *Hub) Stop() {
	if h.cancel != nil {
		h.cancel()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueueSize)}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

// Publish implements services.EventPublisher. It never blocks on a slow
// client: a connection whose queue is full is dropped.
func (h *Hub) Publish(ctx context.Context, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WebSocket event %s not encodable: %v", msg.Type, err)
		return
	}

	if h.publisher == nil {
		h.broadcast(data)
		return
	}
	if err := h.publisher.Publish(ctx, EventsChannel, data).Err(); err != nil {
		log.Printf("Failed to publish %s event: %v", msg.Type, err)
	}
}

// ConnectionCount reports the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	log.Printf("WebSocket connected (total: %d)", len(h.clients))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	c.close()
	delete(h.clients, c)
	log.Printf("WebSocket disconnected (total: %d)", len(h.clients))
}

// readPump discards client frames and unregisters on disconnect.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the send queue. It exits, closing the connection, when
// the queue is closed or a write fails or times out.
func (h *Hub) writePump(c *client) {
	defer func() {
		c.conn.Close()
		h.unregister(c)
	}()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("WebSocket write failed: %v", err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (h *Hub) relay(ctx context.Context, pubsub *redis.PubSub) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

// broadcast queues data for every client without doing network I/O.
func (h *Hub) broadcast(data []byte) {
	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Printf("WebSocket client too slow, dropping connection")
		h.unregister(c)
		c.conn.Close()
	}
}
