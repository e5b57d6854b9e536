package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"CoinPulse/internal/domain/models"
	drepo "CoinPulse/internal/domain/repository"
	"CoinPulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans snapshot updates out to WebSocket subscribers. It delivers
// one incremental message per successful cache write and a full state
// push on a fixed cadence.
type Hub struct {
	store        drepo.SnapshotStore
	pushInterval time.Duration
	log          *logger.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a hub reading full state from the given store.
func NewHub(store drepo.SnapshotStore, pushInterval time.Duration, log *logger.Logger) *Hub {
	return &Hub{
		store:        store,
		pushInterval: pushInterval,
		log:          log,
		clients:      make(map[*Client]bool),
	}
}

type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	At   time.Time   `json:"at"`
}

type fullState struct {
	Assets        []*models.AssetSnapshot    `json:"assets"`
	Sentiment     *models.SentimentIndex     `json:"sentiment,omitempty"`
	Overview      *models.MarketOverview     `json:"overview,omitempty"`
	AltcoinSeason *models.AltcoinSeasonIndex `json:"altcoin_season,omitempty"`
}

// Run pushes the full cache state to every client on the configured
// interval. Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			h.pushFullState()
		}
	}
}

// Notify delivers one snapshot event to all clients. Intended as the
// scheduler's per-write callback.
func (h *Hub) Notify(event *models.SnapshotEvent) {
	payload, err := json.Marshal(envelope{Type: "update", Data: event.Snapshot, At: event.At})
	if err != nil {
		return
	}
	h.broadcast(payload)
}

func (h *Hub) pushFullState() {
	now := time.Now()
	state := fullState{Assets: h.store.GetAll(now)}
	if v, ok := h.store.Sentiment(now); ok {
		state.Sentiment = v
	}
	if v, ok := h.store.Overview(now); ok {
		state.Overview = v
	}
	if v, ok := h.store.AltcoinSeason(now); ok {
		state.AltcoinSeason = v
	}

	payload, err := json.Marshal(envelope{Type: "full", Data: state, At: now})
	if err != nil {
		return
	}
	h.broadcast(payload)
}

// broadcast sends to every client without blocking: a subscriber that
// cannot keep up loses messages rather than stalling the hub.
func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
		}
	}
}

// HandleWS upgrades the request and registers the client. The first
// message a new client receives is the current full state.
func (h *Hub) HandleWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := newClient(h, conn)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.log != nil {
		h.log.Info("ws client connected", logger.Int("total", count))
	}

	client.sendInitialState()
	go client.writePump()
	go client.readPump()
	return nil
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if h.log != nil {
		h.log.Info("ws client disconnected", logger.Int("total", count))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
