// Package websocket pushes dataset change events to connected dashboards. A
// hub fans messages out to per-client send channels; slow clients are dropped
// rather than allowed to stall the broadcast.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"attendash/pkg/contracts/domain"
)

// Message types sent over the push channel.
const (
	TypeConnection = "connection"
	TypeDataUpdate = "data_update"
)

// Envelope is the wire frame for every push message.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// DataUpdate announces a committed dataset revision.
type DataUpdate struct {
	Revision uint64               `json:"revision"`
	RowCount int                  `json:"row_count"`
	Notices  domain.IngestNotices `json:"notices"`
}

// ClientCounter observes the connected client count, typically a Prometheus
// gauge. Nil disables reporting.
type ClientCounter interface {
	Inc()
	Dec()
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}

	mu      sync.Mutex
	running bool

	logger  *slog.Logger
	counter ClientCounter
}

// NewHub creates a hub. Logger and counter may be nil.
func NewHub(logger *slog.Logger, counter ClientCounter) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		counter:    counter,
	}
}

// Start launches the hub loop. Safe to call once.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Shutdown stops the hub loop and closes every client send channel.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
				if h.counter != nil {
					h.counter.Dec()
				}
			}
			h.logger.Info("hub shut down")
			return

		case client := <-h.register:
			h.clients[client] = true
			if h.counter != nil {
				h.counter.Inc()
			}
			h.logger.Debug("client registered",
				slog.String("client_id", client.id),
				slog.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				if h.counter != nil {
					h.counter.Dec()
				}
				h.logger.Debug("client unregistered",
					slog.String("client_id", client.id),
					slog.Int("clients", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client cannot keep up; drop it.
					delete(h.clients, client)
					close(client.send)
					if h.counter != nil {
						h.counter.Dec()
					}
					h.logger.Warn("dropped slow client",
						slog.String("client_id", client.id))
				}
			}
		}
	}
}

// BroadcastDataUpdate pushes a dataset revision announcement to all clients.
func (h *Hub) BroadcastDataUpdate(update DataUpdate) {
	h.broadcastEnvelope(Envelope{
		Type:      TypeDataUpdate,
		Timestamp: time.Now().UTC(),
		Payload:   update,
	})
}

func (h *Hub) broadcastEnvelope(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to marshal push message",
			slog.String("type", env.Type),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.quit:
	}
}
