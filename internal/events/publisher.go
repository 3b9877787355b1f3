package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/vedran77/chronofeed/internal/domain"
)

// Publisher writes MessageCreated events keyed by conversation id, so all
// events of one conversation land on the same partition in order.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *Publisher) PublishMessageCreated(ctx context.Context, msg *domain.Message, receiverID uuid.UUID) error {
	value, err := json.Marshal(NewMessageCreated(msg, receiverID))
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ConversationID.String()),
		Value: value,
		Time:  msg.CreatedAt,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
