package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// TurnEvent is the message broadcast to WebSocket clients after each
// processed turn, so dashboards can follow live conversations.
type TurnEvent struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	QueryUsed   string `json:"query_used"`
	ResultShape string `json:"result_shape"`
}

// subscriber is one attached event consumer. Real connections and test
// doubles both satisfy it.
type subscriber interface {
	outbox() chan []byte
	shutdown()
}

// WebSocketHub fans turn events out to attached WebSocket connections.
// Slow consumers are detached rather than allowed to stall the fan-out.
type WebSocketHub struct {
	mu             sync.Mutex
	subscribers    map[subscriber]struct{}
	events         chan []byte
	done           chan struct{}
	stopOnce       sync.Once
	originPatterns []string
}

// NewWebSocketHub creates a hub that accepts upgrades from the given
// origin patterns.
func NewWebSocketHub(originPatterns []string) *WebSocketHub {
	return &WebSocketHub{
		subscribers:    make(map[subscriber]struct{}),
		events:         make(chan []byte, 256),
		done:           make(chan struct{}),
		originPatterns: originPatterns,
	}
}

// Run delivers queued events to subscribers until Stop is called.
func (h *WebSocketHub) Run() {
	for {
		select {
		case data := <-h.events:
			h.deliver(data)
		case <-h.done:
			return
		}
	}
}

// deliver hands one marshaled event to every subscriber, detaching any
// whose outbox is full.
func (h *WebSocketHub) deliver(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		select {
		case sub.outbox() <- data:
		default:
			delete(h.subscribers, sub)
			close(sub.outbox())
		}
	}
}

// Broadcast queues a turn event for delivery. It never blocks: when the
// queue is full the event is dropped and logged.
func (h *WebSocketHub) Broadcast(event TurnEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: failed to marshal turn event: %v", err)
		return
	}
	select {
	case h.events <- data:
	default:
		log.Printf("ws: event queue full, dropping turn event for session %s", event.SessionID)
	}
}

// Register attaches a subscriber to the hub.
func (h *WebSocketHub) Register(sub subscriber) {
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	n := len(h.subscribers)
	h.mu.Unlock()
	log.Printf("ws: client connected (total: %d)", n)
}

// Unregister detaches a subscriber, closing its outbox exactly once.
func (h *WebSocketHub) Unregister(sub subscriber) {
	h.mu.Lock()
	_, attached := h.subscribers[sub]
	if attached {
		delete(h.subscribers, sub)
		close(sub.outbox())
	}
	n := len(h.subscribers)
	h.mu.Unlock()
	if attached {
		log.Printf("ws: client disconnected (total: %d)", n)
	}
}

// Stop shuts the hub down and disconnects every subscriber.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		for sub := range h.subscribers {
			close(sub.outbox())
			sub.shutdown()
		}
		h.subscribers = make(map[subscriber]struct{})
		h.mu.Unlock()
	})
}

// wsClient is one live WebSocket connection.
type wsClient struct {
	hub  *WebSocketHub
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) outbox() chan []byte { return c.send }

func (c *wsClient) shutdown() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

// ServeHTTP upgrades the request and streams turn events to the client
// until either side disconnects.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	client := &wsClient{hub: h, conn: conn, send: make(chan []byte, 64)}
	h.Register(client)

	go client.writeLoop()
	go client.readLoop()
}

// writeLoop drains the outbox onto the wire. A write failure or a
// closed outbox ends the connection.
func (c *wsClient) writeLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.shutdown()
	}()

	for data := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			return
		}
	}
}

// readLoop consumes inbound frames solely to notice disconnects; clients
// send no meaningful payloads today.
func (c *wsClient) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.shutdown()
	}()

	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}

// MockClient is a subscriber double for tests.
type MockClient struct {
	SendChan chan []byte
}

func (m *MockClient) outbox() chan []byte { return m.SendChan }

func (m *MockClient) shutdown() {}
