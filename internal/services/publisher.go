package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"geminichat-backend/internal/models"
	"geminichat-backend/internal/transcript"
)

// SessionChannel is the Redis pub/sub channel carrying updates for a session.
func SessionChannel(sessionID uuid.UUID) string {
	return fmt.Sprintf("session_updates:%s", sessionID.String())
}

// Broadcaster delivers a raw message to the sockets watching a session.
type Broadcaster interface {
	Broadcast(sessionID uuid.UUID, data []byte)
}

// TurnPublisher fans appended turns out to WebSocket clients, through Redis
// when a client is configured and directly to the local hub otherwise.
type TurnPublisher struct {
	redis   *redis.Client
	local   Broadcaster
	timeout time.Duration
}

func NewTurnPublisher(redisClient *redis.Client, local Broadcaster) *TurnPublisher {
	return &TurnPublisher{redis: redisClient, local: local, timeout: 2 * time.Second}
}

// PublishTurn matches session.AppendHook.
func (p *TurnPublisher) PublishTurn(sessionID uuid.UUID, turn transcript.Turn) {
	data, err := json.Marshal(models.WSMessage{Type: models.WSTurnAppended, Payload: turn})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode turn update")
		return
	}

	if p.redis == nil {
		if p.local != nil {
			p.local.Broadcast(sessionID, data)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.redis.Publish(ctx, SessionChannel(sessionID), string(data)).Err(); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("failed to publish turn update")
	}
}
