package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/pkg/kafka"
	"github.com/Ramsey-B/aster/pkg/models"
)

const (
	TypeEntityCreated = "entity.created"
	TypeEntityUpdated = "entity.updated"
	TypeEntityDeleted = "entity.deleted"

	SourceDirect     = "direct"
	SourceModeration = "moderation"
)

// Emitter publishes entity change notifications. Emission is best-effort; a
// broker failure is logged, never surfaced to the request.
type Emitter interface {
	EntityChanged(ctx context.Context, eventType string, kind models.EntityKind, entityID int64, actorID, source string)
}

type kafkaEmitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

func NewKafkaEmitter(producer *kafka.Producer, logger ectologger.Logger) Emitter {
	return &kafkaEmitter{
		producer: producer,
		logger:   logger,
	}
}

func (e *kafkaEmitter) EntityChanged(ctx context.Context, eventType string, kind models.EntityKind, entityID int64, actorID, source string) {
	err := e.producer.Publish(ctx, &kafka.EntityEventMessage{
		Type:       eventType,
		EntityType: string(kind),
		EntityID:   entityID,
		ActorID:    actorID,
		Source:     source,
	})
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"type": eventType, "entity_type": kind, "entity_id": entityID}).Warn("Failed to emit entity event")
	}
}

type noopEmitter struct{}

// NewNoopEmitter returns an emitter for deployments without a broker.
func NewNoopEmitter() Emitter {
	return noopEmitter{}
}

func (noopEmitter) EntityChanged(context.Context, string, models.EntityKind, int64, string, string) {}
