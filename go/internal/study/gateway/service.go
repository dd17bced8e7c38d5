package gateway

import (
	"context"
	"net/http"

	"github.com/mcdev12/studyroom/go/internal/study/events"
	"github.com/rs/zerolog/log"
)

// Service bundles the connection manager and its HTTP handler.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
}

// Config holds configuration for the study gateway
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the study gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new study gateway service
func NewService(config Config, handler CommandHandler) *Service {
	cm := NewConnectionManager(config.ConnectionConfig, handler)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
	}
}

// Start runs the gateway until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting study gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("study gateway service stopped")
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("study gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "study_gateway"
	return stats
}

// Broadcast implements the orchestrator's Broadcaster.
func (s *Service) Broadcast(sessionID string, event *events.Event) {
	s.connectionManager.Broadcast(sessionID, event)
}

// BroadcastExcept implements the orchestrator's Broadcaster.
func (s *Service) BroadcastExcept(sessionID, participantID string, event *events.Event) {
	s.connectionManager.BroadcastExcept(sessionID, participantID, event)
}

// Connected implements the orchestrator's Broadcaster.
func (s *Service) Connected(sessionID, participantID string) bool {
	return s.connectionManager.Connected(sessionID, participantID)
}
