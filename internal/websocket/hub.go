package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"geminichat-backend/internal/models"
	"geminichat-backend/internal/services"
	"geminichat-backend/internal/session"
)

const defaultWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenParser resolves a session token to its session ID.
type TokenParser interface {
	ParseToken(token string) (uuid.UUID, error)
}

// SessionSource looks up live sessions for the initial snapshot.
type SessionSource interface {
	Session(id uuid.UUID) (*session.Session, error)
}

// Hub pushes transcript updates to the sockets watching each session.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	writeMu     map[*websocket.Conn]*sync.Mutex
	redisClient *redis.Client
	tokens      TokenParser
	sessions    SessionSource
	cancelFuncs map[uuid.UUID]context.CancelFunc
	writeWait   time.Duration
}

// NewHub creates a hub. With a nil redisClient updates arrive only through
// Broadcast from this process.
func NewHub(redisClient *redis.Client, tokens TokenParser, sessions SessionSource) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		writeMu:     make(map[*websocket.Conn]*sync.Mutex),
		redisClient: redisClient,
		tokens:      tokens,
		sessions:    sessions,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		writeWait:   defaultWriteWait,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID, err := h.tokens.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sess, err := h.sessions.Session(sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.registerConnection(sessionID, conn)

	snapshot, _ := json.Marshal(models.WSMessage{Type: models.WSTranscript, Payload: sess.Turns()})
	if err := h.write(conn, snapshot); err != nil {
		log.Debug().Err(err).Msg("websocket snapshot failed")
		h.unregisterConnection(sessionID, conn)
		return
	}

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(sessionID, conn)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], conn)
	h.writeMu[conn] = &sync.Mutex{}

	// Start pub/sub subscription if this is the first connection for this session
	if h.redisClient != nil && len(h.connections[sessionID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[sessionID] = cancel
		go h.subscribeToPubSub(ctx, sessionID)
	}

	log.Info().Str("session_id", sessionID.String()).Int("total", len(h.connections[sessionID])).Msg("websocket connected")
}

// unregisterConnection is safe to call more than once for the same conn.
func (h *Hub) unregisterConnection(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	removed := h.removeLocked(sessionID, conn)
	h.mu.Unlock()

	conn.Close()
	if removed {
		log.Info().Str("session_id", sessionID.String()).Msg("websocket disconnected")
	}
}

// removeLocked requires h.mu held for writing.
func (h *Hub) removeLocked(sessionID uuid.UUID, conn *websocket.Conn) bool {
	if _, ok := h.writeMu[conn]; !ok {
		return false
	}
	delete(h.writeMu, conn)

	conns := h.connections[sessionID]
	for i, c := range conns {
		if c == conn {
			h.connections[sessionID] = append(conns[:i:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, cancel pub/sub
	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
		if cancel, ok := h.cancelFuncs[sessionID]; ok {
			cancel()
			delete(h.cancelFuncs, sessionID)
		}
	}
	return true
}

// CloseSession sends a close frame to every socket of the session and drops
// them. It matches session.RemoveHook.
func (h *Hub) CloseSession(sessionID uuid.UUID) {
	h.mu.Lock()
	conns := append([]*websocket.Conn(nil), h.connections[sessionID]...)
	locks := make([]*sync.Mutex, len(conns))
	for i, conn := range conns {
		locks[i] = h.writeMu[conn]
		h.removeLocked(sessionID, conn)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended")
	for i, conn := range conns {
		locks[i].Lock()
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.writeWait))
		locks[i].Unlock()
		conn.Close()
	}
	if len(conns) > 0 {
		log.Info().Str("session_id", sessionID.String()).Int("closed", len(conns)).Msg("session sockets closed")
	}
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, services.SessionChannel(sessionID))
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
			h.Broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

// Broadcast writes data to every socket of the session. A socket that fails
// or misses the write deadline is dropped.
func (h *Hub) Broadcast(sessionID uuid.UUID, data []byte) {
	h.mu.RLock()
	conns := append([]*websocket.Conn(nil), h.connections[sessionID]...)
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := h.write(conn, data); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("ws broadcast failed, dropping connection")
			h.unregisterConnection(sessionID, conn)
		}
	}
}

// ConnectionCount returns the number of sockets attached to a session.
func (h *Hub) ConnectionCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

// write serialises writers per conn; gorilla connections allow one writer.
func (h *Hub) write(conn *websocket.Conn, data []byte) error {
	h.mu.RLock()
	mu, ok := h.writeMu[conn]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(h.writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

var _ services.Broadcaster = (*Hub)(nil)
