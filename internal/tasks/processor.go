package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TypeSessionCleanup asks a worker to reap expired sessions.
const TypeSessionCleanup = "session_cleanup"

type Reaper interface {
	Run(ctx context.Context) (int64, error)
}

type Processor struct {
	reaper Reaper
	logger zerolog.Logger
}

type TaskPayload struct {
	Type string `json:"type"`
}

func NewProcessor(reaper Reaper, logger zerolog.Logger) *Processor {
	return &Processor{
		reaper: reaper,
		logger: logger,
	}
}

// Handle runs the task carried by msg. Unknown task types are logged and acknowledged.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case TypeSessionCleanup:
		return p.handleSessionCleanup(ctx, msg.ID)
	default:
		p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

func (p *Processor) handleSessionCleanup(ctx context.Context, messageID string) error {
	deleted, err := p.reaper.Run(ctx)
	if err != nil {
		return fmt.Errorf("session cleanup: %w", err)
	}
	p.logger.Debug().Str("message_id", messageID).Int64("deleted", deleted).Msg("session cleanup task done")
	return nil
}
