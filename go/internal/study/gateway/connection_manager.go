package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/studyroom/go/internal/study/events"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages WebSocket connections grouped by room.
type ConnectionManager struct {
	// Connections per session id. A connection joins a room on enter.
	rooms map[string]map[*Connection]bool
	// Every open connection, bound or not.
	conns map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  CommandHandler
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Manager *ConnectionManager

	// Set on enter, guarded by Manager.mu.
	SessionID     string
	ParticipantID string

	send   chan []byte
	sendMu sync.Mutex
	closed bool

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	CommandTimeout  time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		CommandTimeout:  5 * time.Second,
		MaxMessageSize:  64 * 1024, // problem lists can be long
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, handler CommandHandler) *ConnectionManager {
	return &ConnectionManager{
		rooms: make(map[string]map[*Connection]bool),
		conns: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:  config,
		handler: handler,
	}
}

// Start blocks until ctx is done, then closes every connection.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	<-ctx.Done()

	cm.mu.RLock()
	open := make([]*Connection, 0, len(cm.conns))
	for c := range cm.conns {
		open = append(open, c)
	}
	cm.mu.RUnlock()

	for _, c := range open {
		c.Conn.Close()
	}
	log.Info().Int("closed", len(open)).Msg("connection manager shutting down")
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Manager:     cm,
		send:        make(chan []byte, cm.config.SendBufferSize),
		ConnectedAt: time.Now(),
	}

	cm.mu.Lock()
	cm.conns[connection] = true
	cm.mu.Unlock()

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

// bind moves the connection into sessionID's room and returns its previous binding.
func (cm *ConnectionManager) bind(c *Connection, sessionID, participantID string) (prevSession, prevParticipant string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	prevSession, prevParticipant = c.SessionID, c.ParticipantID
	if room, ok := cm.rooms[prevSession]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(cm.rooms, prevSession)
		}
	}

	c.SessionID, c.ParticipantID = sessionID, participantID
	if sessionID != "" {
		if cm.rooms[sessionID] == nil {
			cm.rooms[sessionID] = make(map[*Connection]bool)
		}
		cm.rooms[sessionID][c] = true
	}
	return prevSession, prevParticipant
}

// binding returns the connection's current room and participant.
func (cm *ConnectionManager) binding(c *Connection) (string, string) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return c.SessionID, c.ParticipantID
}

// unregisterConnection removes a connection and, when it was the participant's
// last one, reports the departure to the command handler.
func (cm *ConnectionManager) unregisterConnection(c *Connection) {
	cm.mu.Lock()
	if !cm.conns[c] {
		cm.mu.Unlock()
		return
	}
	delete(cm.conns, c)
	if room, ok := cm.rooms[c.SessionID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(cm.rooms, c.SessionID)
		}
	}
	participantID, sessionID := c.ParticipantID, c.SessionID
	lastConnection := participantID != "" && !cm.hasParticipantLocked(participantID)
	cm.mu.Unlock()

	c.closeSend()

	log.Info().
		Str("connection_id", c.ID).
		Str("participant_id", participantID).
		Str("session_id", sessionID).
		Msg("connection unregistered")

	// Unregister can run on the orchestrator goroutine via Broadcast, so the
	// leave command must not be awaited here.
	if lastConnection && cm.handler != nil {
		go cm.notifyLeave(participantID, sessionID)
	}
}

func (cm *ConnectionManager) hasParticipantLocked(participantID string) bool {
	for c := range cm.conns {
		if c.ParticipantID == participantID {
			return true
		}
	}
	return false
}

func (cm *ConnectionManager) notifyLeave(participantID, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cm.config.CommandTimeout)
	defer cancel()
	if err := cm.handler.Leave(ctx, participantID, sessionID); err != nil {
		log.Debug().Err(err).Str("participant_id", participantID).Msg("leave not recorded")
	}
}

// Connected reports whether participantID has a connection bound to sessionID.
func (cm *ConnectionManager) Connected(sessionID, participantID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for c := range cm.rooms[sessionID] {
		if c.ParticipantID == participantID {
			return true
		}
	}
	return false
}

// Broadcast sends an event to every connection in the room.
func (cm *ConnectionManager) Broadcast(sessionID string, event *events.Event) {
	cm.broadcast(sessionID, "", event)
}

// BroadcastExcept sends an event to every connection in the room not bound to participantID.
func (cm *ConnectionManager) BroadcastExcept(sessionID, participantID string, event *events.Event) {
	cm.broadcast(sessionID, participantID, event)
}

// broadcast snapshots the room's connections and pushes without blocking.
// Connections whose send buffer is full are dropped.
func (cm *ConnectionManager) broadcast(sessionID, exceptParticipant string, event *events.Event) {
	cm.mu.RLock()
	var targets []*Connection
	for c := range cm.rooms[sessionID] {
		if exceptParticipant != "" && c.ParticipantID == exceptParticipant {
			continue
		}
		targets = append(targets, c)
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, c := range targets {
		if !c.trySend(data) {
			log.Warn().
				Str("connection_id", c.ID).
				Str("session_id", sessionID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(c)
			c.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Str("session_id", sessionID).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	roomCounts := make(map[string]int, len(cm.rooms))
	for sessionID, conns := range cm.rooms {
		roomCounts[sessionID] = len(conns)
	}

	return map[string]interface{}{
		"total_connections": len(cm.conns),
		"active_rooms":      len(cm.rooms),
		"room_connections":  roomCounts,
	}
}

// trySend queues data without blocking. It reports false when the buffer is full;
// sends after close are discarded.
func (c *Connection) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client commands. Commands from one connection run in order.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
