package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fimbul-io/sporing/pkg/tracing"
)

const consumeRetryDelay = 5 * time.Second

// Consumer reads the rapid topic with a Kafka consumer group and dispatches
// each message to the river registered for its event name. Messages are
// processed sequentially per partition; a message is only marked consumed
// once its river has handled it, so transient storage failures surface as
// redeliveries.
type Consumer struct {
	consumer sarama.ConsumerGroup
	topic    string
	rivers   map[string]River
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewConsumer(brokers string, groupID string, topic string, logger *slog.Logger, tracer trace.Tracer, rivers ...River) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Session.Timeout = 10 * time.Second
	config.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Return.Errors = true

	brokerList := strings.Split(brokers, ",")
	for i, broker := range brokerList {
		brokerList[i] = strings.TrimSpace(broker)
	}

	consumerGroup, err := sarama.NewConsumerGroup(brokerList, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}

	byEventName := make(map[string]River, len(rivers))
	for _, river := range rivers {
		byEventName[river.EventName()] = river
	}

	return &Consumer{
		consumer: consumerGroup,
		topic:    topic,
		rivers:   byEventName,
		logger:   logger.With("component", "stream_consumer"),
		tracer:   tracer,
	}, nil
}

// Start blocks consuming until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	go c.monitorErrors(ctx)

	handler := &consumerGroupHandler{consumer: c}

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Consumer context cancelled, stopping")

			return nil
		default:
			err := c.consumer.Consume(ctx, []string{c.topic}, handler)
			if err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return nil
				}

				c.logger.ErrorContext(ctx, "Kafka consumer error", "error", err)
				time.Sleep(consumeRetryDelay)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}

func (c *Consumer) monitorErrors(ctx context.Context) {
	for {
		select {
		case err := <-c.consumer.Errors():
			if err != nil {
				c.logger.ErrorContext(ctx, "Kafka consumer group error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

type consumerGroupHandler struct {
	consumer *Consumer
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.consumer.logger.Info("Kafka consumer group session started")

	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.consumer.logger.Info("Kafka consumer group session ended")

	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()

	for message := range claim.Messages() {
		if err := h.consumer.handleMessage(ctx, message); err != nil {
			// leave the message unmarked so the next session redelivers it
			return err
		}

		session.MarkMessage(message, "")
	}

	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	envelope, err := ParseEnvelope(message.Value)
	if err != nil {
		c.logger.DebugContext(ctx, "Skipping non-JSON message",
			"topic", message.Topic, "partition", message.Partition, "offset", message.Offset)

		return nil
	}

	river, ok := c.rivers[envelope.EventName()]
	if !ok {
		return nil
	}

	msgCtx, span := tracing.StartSpan(ctx, c.tracer, "stream.consumer consume",
		attribute.String(tracing.EventNameKey, envelope.EventName()),
		attribute.String(tracing.TopicKey, message.Topic),
		attribute.Int64(tracing.OffsetKey, message.Offset),
		attribute.Int(tracing.PartitionKey, int(message.Partition)),
	)
	defer span.End()

	if err := river.Handle(msgCtx, envelope); err != nil {
		c.logger.ErrorContext(msgCtx, "Failed to handle message",
			"event_name", envelope.EventName(),
			"topic", message.Topic,
			"partition", message.Partition,
			"offset", message.Offset,
			"error", err)
		tracing.SetError(span, err)

		return err
	}

	return nil
}
