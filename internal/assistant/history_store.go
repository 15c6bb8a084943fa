package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const conversationTTL = 24 * time.Hour

// historyStore keeps per-conversation chat history in Redis so the assistant
// stays stateless across instances.
type historyStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func newHistoryStore(client *redis.Client, tracer trace.Tracer) *historyStore {
	if client == nil {
		return nil
	}
	if tracer == nil {
		tracer = otel.Tracer("lavie.internal.assistant.history")
	}
	return &historyStore{redis: client, tracer: tracer}
}

func conversationKey(salonID, id string) string {
	return fmt.Sprintf("conversation:%s:%s", salonID, id)
}

func (s *historyStore) Save(ctx context.Context, salonID, conversationID string, history []ChatMessage) error {
	if s == nil {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "assistant.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, conversationKey(salonID, conversationID), data, conversationTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to persist history: %w", err)
	}
	return nil
}

func (s *historyStore) Load(ctx context.Context, salonID, conversationID string) ([]ChatMessage, error) {
	if s == nil {
		return nil, nil
	}
	ctx, span := s.tracer.Start(ctx, "assistant.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, conversationKey(salonID, conversationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: failed to load history: %w", err)
	}

	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: failed to decode history: %w", err)
	}
	return history, nil
}
