package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"perfect-slate/logging"
	"perfect-slate/metrics"
	"perfect-slate/models"

	"github.com/google/uuid"
)

const (
	sseClientBuffer   = 100
	sseHeartbeatEvery = 30 * time.Second
)

// SSEClient is one connected event stream. An empty Sport receives every sport.
type SSEClient struct {
	ID      string
	Sport   models.Sport
	Channel chan string
}

// GameEvent is the payload of a game_update event
type GameEvent struct {
	GameID    int64             `json:"gameId"`
	ContestID int64             `json:"contestId"`
	Sport     models.Sport      `json:"sport"`
	Status    models.GameStatus `json:"status"`
	HomeScore *int              `json:"homeScore,omitempty"`
	AwayScore *int              `json:"awayScore,omitempty"`
	Matchup   string            `json:"matchup"`
	Score     string            `json:"score"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// SSEHandler streams live game updates, replacing client polling
type SSEHandler struct {
	mu             sync.RWMutex
	clients        map[*SSEClient]struct{}
	messageCounter uint64
	heartbeat      *time.Ticker
	stop           chan struct{}
	stopOnce       sync.Once
	metrics        *metrics.Recorder
	logger         *logging.Logger
}

// NewSSEHandler creates the hub and starts its heartbeat
func NewSSEHandler(recorder *metrics.Recorder) *SSEHandler {
	h := &SSEHandler{
		clients: make(map[*SSEClient]struct{}),
		stop:    make(chan struct{}),
		metrics: recorder,
		logger:  logging.WithPrefix("SSE"),
	}
	h.startHeartbeat(sseHeartbeatEvery)
	return h
}

// ClientCount returns the number of connected clients
func (h *SSEHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *SSEHandler) register(c *SSEClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.SSEClientConnected()
}

func (h *SSEHandler) unregister(c *SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Channel)
		h.metrics.SSEClientDisconnected()
	}
}

// Handle serves GET /api/events. ?sport=MLB limits the stream to one sport.
func (h *SSEHandler) Handle(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	client := &SSEClient{
		ID:      uuid.NewString(),
		Channel: make(chan string, sseClientBuffer),
	}
	if s := r.URL.Query().Get("sport"); s != "" {
		sport, err := models.ParseSport(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		client.Sport = sport
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	h.register(client)
	defer func() {
		h.unregister(client)
		h.logger.Debugf("Client %s disconnected", client.ID)
	}()
	h.logger.Debugf("Client %s connected from %s (sport %q)", client.ID, r.RemoteAddr, client.Sport)

	fmt.Fprintf(w, "event: connection\ndata: {\"clientId\":%q}\n\n", client.ID)
	flusher.Flush()

	for {
		select {
		case message, ok := <-client.Channel:
			if !ok {
				return
			}
			fmt.Fprint(w, message)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (h *SSEHandler) nextMessageID() uint64 {
	return atomic.AddUint64(&h.messageCounter, 1)
}

func formatEvent(id uint64, eventType string, data []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %d\nevent: %s\n", id, eventType)
	for _, line := range strings.Split(string(data), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	return b.String()
}

// Broadcast sends an event to every client subscribed to sport. An empty sport reaches all clients.
func (h *SSEHandler) Broadcast(sport models.Sport, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Errorf("Failed to encode %s event: %v", eventType, err)
		return
	}
	message := formatEvent(h.nextMessageID(), eventType, data)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if sport != "" && client.Sport != "" && client.Sport != sport {
			continue
		}
		select {
		case client.Channel <- message:
		default:
			h.logger.Warnf("Client %s channel full, dropping %s", client.ID, eventType)
		}
	}
}

// BroadcastGameUpdate publishes a game's status and score
func (h *SSEHandler) BroadcastGameUpdate(game *models.Game) {
	h.Broadcast(game.Sport, "game_update", GameEvent{
		GameID:    game.ID,
		ContestID: game.ContestID,
		Sport:     game.Sport,
		Status:    game.Status,
		HomeScore: game.HomeScore,
		AwayScore: game.AwayScore,
		Matchup:   game.Matchup(),
		Score:     game.ScoreString(),
		UpdatedAt: game.UpdatedAt,
	})
}

func (h *SSEHandler) startHeartbeat(every time.Duration) {
	h.heartbeat = time.NewTicker(every)
	go func() {
		for {
			select {
			case <-h.heartbeat.C:
				if h.ClientCount() > 0 {
					h.Broadcast("", "heartbeat", map[string]int64{"time": time.Now().Unix()})
				}
			case <-h.stop:
				h.heartbeat.Stop()
				return
			}
		}
	}()
}

// Stop ends the heartbeat and disconnects every client
func (h *SSEHandler) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.Channel)
			h.metrics.SSEClientDisconnected()
		}
		h.mu.Unlock()
	})
}
