package repository

import (
	"context"
	"time"

	"github.com/forest-density-service/internal/domain"
)

// StreamRepository - Redis Streams access
type StreamRepository interface {
	// ConsumeBatch reads up to maxCount new messages for the consumer
	ConsumeBatch(ctx context.Context, stream, group, consumer string, maxCount int) ([]domain.StreamMessage, error)

	// ClaimPending takes over messages left pending by any consumer for at least minIdle
	ClaimPending(ctx context.Context, stream, group, consumer string, minIdle time.Duration, maxCount int) ([]domain.StreamMessage, error)

	// ExtendClaim resets the idle time of messages the consumer still works on
	ExtendClaim(ctx context.Context, stream, group, consumer string, messageIDs []string) error

	// AckMessage acknowledges a processed message
	AckMessage(ctx context.Context, stream, group, messageID string) error

	// AckMessages acknowledges several messages at once
	AckMessages(ctx context.Context, stream, group string, messageIDs []string) error

	// CreateConsumerGroup creates the consumer group if it does not exist
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// PublishToStream publishes data as JSON
	PublishToStream(ctx context.Context, stream string, data interface{}) error
}
