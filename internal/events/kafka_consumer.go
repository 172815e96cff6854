package events

import (
	"context"
	"errors"

	"github.com/Kilat-Pet-Delivery/service-album/internal/application"
	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-album/internal/eventbus"
	"github.com/Kilat-Pet-Delivery/service-album/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RefreshCommandConsumer listens for refresh commands and runs them.
type RefreshCommandConsumer struct {
	consumer *kafka.Consumer
	sync     *application.PhotoSyncService
	logger   *zap.Logger
}

// NewRefreshCommandConsumer creates a new RefreshCommandConsumer.
func NewRefreshCommandConsumer(
	brokers []string,
	groupID string,
	topic string,
	sync *application.PhotoSyncService,
	logger *zap.Logger,
) *RefreshCommandConsumer {
	if topic == "" {
		topic = eventbus.TopicAlbumCommands
	}
	consumer := kafka.NewConsumer(brokers, groupID, topic, logger)
	return &RefreshCommandConsumer{
		consumer: consumer,
		sync:     sync,
		logger:   logger,
	}
}

// Start begins consuming commands. This blocks until the context is cancelled.
func (c *RefreshCommandConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *RefreshCommandConsumer) Close() error {
	return c.consumer.Close()
}

func (c *RefreshCommandConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from command topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case eventbus.RefreshRequested:
		return c.handleRefreshRequested(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled command type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *RefreshCommandConsumer) handleRefreshRequested(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var cmd eventbus.RefreshRequestedCommand
	if err := cloudEvent.ParseData(&cmd); err != nil {
		c.logger.Error("failed to parse RefreshRequestedCommand data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing refresh command",
		zap.String("location_id", cmd.LocationID.String()),
		zap.String("event_id", cloudEvent.ID),
	)

	r, err := c.sync.Refresh(ctx, cmd.LocationID)
	switch {
	case err == nil:
	case domain.IsNotFound(err), errors.Is(err, application.ErrRefreshSuperseded):
		c.logger.Info("refresh command skipped",
			zap.String("location_id", cmd.LocationID.String()),
			zap.Error(err),
		)
		return nil
	default:
		return err
	}

	c.logger.Info("refresh started from command",
		zap.String("location_id", cmd.LocationID.String()),
		zap.String("refresh_id", r.ID().String()),
	)
	return nil
}
