package sessions

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"gymbuddy-backend/internal/auth"
	"gymbuddy-backend/internal/engine"
	"gymbuddy-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the client domains are fixed.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// streamConn serializes writes to one websocket connection. The forwarder and
// the keepalive ticker both produce frames, and gorilla/websocket allows only
// a single concurrent writer.
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *streamConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

func (c *streamConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// MatchStreamManager delivers committed timeline and chat inserts to
// participants viewing an active match. One websocket connection = one
// subscription to the match's pub/sub channel; closing the connection (or the
// match ending) tears the subscription down.
type MatchStreamManager struct {
	redis *storage.RedisClient
	pings *engine.PingService

	mu          sync.RWMutex
	connections map[uuid.UUID]int // pingID -> open subscriber count
}

func NewMatchStreamManager(redis *storage.RedisClient, pings *engine.PingService) *MatchStreamManager {
	return &MatchStreamManager{
		redis:       redis,
		pings:       pings,
		connections: make(map[uuid.UUID]int),
	}
}

// HandleMatchStream handles GET /ws/match/{pingID}. The caller must be a
// participant of a currently accepted match.
func (m *MatchStreamManager) HandleMatchStream(w http.ResponseWriter, r *http.Request) {
	caller := auth.Caller(r.Context())

	pingID, err := uuid.Parse(chi.URLParam(r, "pingID"))
	if err != nil {
		http.Error(w, "pingID must be a valid UUID", http.StatusBadRequest)
		return
	}

	ping, err := m.pings.GetPing(r.Context(), pingID)
	if err != nil {
		if engine.IsKind(err, engine.KindNotFound) {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load match", http.StatusInternalServerError)
		return
	}
	if !ping.Participant(caller) {
		http.Error(w, "caller is not a participant", http.StatusForbidden)
		return
	}
	if ping.Status != storage.PingAccepted {
		http.Error(w, "match is not active", http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS_CONNECT] upgrade failed for ping=%s: %v", pingID, err)
		return
	}
	defer conn.Close()
	sc := &streamConn{conn: conn}

	m.track(pingID, +1)
	defer m.track(pingID, -1)
	log.Printf("[WS_CONNECT] user=%s subscribed to ping=%s", caller, pingID)

	// Subscription lifetime is scoped to this connection.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := m.redis.SubscribeToMatch(ctx, pingID)
	defer pubsub.Close()

	done := make(chan struct{})
	go m.forwardUpdates(ctx, cancel, caller, pingID, pubsub, sc, done)

	m.keepAlive(caller, pingID, sc, done)
	log.Printf("[WS_DISCONNECT] user=%s left ping=%s", caller, pingID)
}

// forwardUpdates relays frames from the match channel to the socket.
// Delivery upstream is at-least-once, so frames are deduplicated by id before
// forwarding. A match_ended frame closes the stream.
func (m *MatchStreamManager) forwardUpdates(ctx context.Context, cancel context.CancelFunc,
	caller, pingID uuid.UUID, pubsub *storage.RedisSubscriber, sc *streamConn, done chan struct{}) {
	defer close(done)
	seen := make(map[uuid.UUID]struct{})

	for {
		update, err := pubsub.ReceiveUpdate(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[WS_STREAM] receive failed for ping=%s: %v", pingID, err)
			}
			return
		}
		if _, dup := seen[update.ID]; dup {
			continue
		}
		seen[update.ID] = struct{}{}

		if err := sc.writeJSON(update); err != nil {
			log.Printf("[WS_STREAM] write failed for user=%s ping=%s: %v", caller, pingID, err)
			return
		}

		if update.Type == storage.UpdateMatchEnded {
			// No further updates are expected once the match ends.
			cancel()
			return
		}
	}
}

// keepAlive reads client frames to detect disconnects and pings the peer on
// an interval.
func (m *MatchStreamManager) keepAlive(caller, pingID uuid.UUID, sc *streamConn, done chan struct{}) {
	conn := sc.conn
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[WS_READER] unexpected close for user=%s ping=%s: %v", caller, pingID, err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := sc.ping(); err != nil {
				return
			}
		case <-readerDone:
			return
		case <-done:
			return
		}
	}
}

func (m *MatchStreamManager) track(pingID uuid.UUID, delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[pingID] += delta
	if m.connections[pingID] <= 0 {
		delete(m.connections, pingID)
	}
}

// SubscriberCount reports how many sockets are attached to a match.
func (m *MatchStreamManager) SubscriberCount(pingID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connections[pingID]
}

// HandleStats handles GET /debug/streams: open stream counts per match.
func (m *MatchStreamManager) HandleStats(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	total := 0
	matches := make(map[string]int, len(m.connections))
	for id, count := range m.connections {
		matches[id.String()] = count
		total += count
	}
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total_connections": total,
		"matches":           matches,
	})
}
