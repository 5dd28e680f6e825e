package common

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"savings-circle/rosca/internal/models/dtos"
)

// CycleEventPublisher receives settled cycles after they commit.
type CycleEventPublisher interface {
	PublishCycleEvent(ctx context.Context, event *dtos.CycleEvent) error
}

// CycleEventStream publishes cycle events to a Redis Stream
type CycleEventStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ CycleEventPublisher = (*CycleEventStream)(nil)

// NewCycleEventStream creates a publisher bound to one stream. maxLen caps the
// stream length (approximate trimming); 0 leaves it unbounded.
func NewCycleEventStream(client *redis.Client, stream string, maxLen int64) *CycleEventStream {
	return &CycleEventStream{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// PublishCycleEvent appends the event: XADD stream * data <json>
func (s *CycleEventStream) PublishCycleEvent(ctx context.Context, event *dtos.CycleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cycle event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"type":           event.Type,
			"association_id": event.AssociationID,
			"data":           string(data),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if _, err := s.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	return nil
}

// StreamLength returns the current stream length
func (s *CycleEventStream) StreamLength(ctx context.Context) (int64, error) {
	return s.client.XLen(ctx, s.stream).Result()
}
