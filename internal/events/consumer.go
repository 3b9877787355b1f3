package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"github.com/vedran77/chronofeed/internal/domain"
	"github.com/vedran77/chronofeed/internal/service"
)

// Recorder stores a notification. Implemented by service.NotificationService.
type Recorder interface {
	Record(ctx context.Context, input service.RecordInput) (*domain.Notification, error)
}

const (
	fetchBackoff = time.Second
	maxRetryWait = 30 * time.Second
)

var errMalformed = errors.New("malformed notification request")

type Consumer struct {
	reader   *kafka.Reader
	recorder Recorder

	// retryBase is the first wait before re-recording after a store failure.
	retryBase time.Duration
}

func NewConsumer(brokers []string, groupID, topic string, recorder Recorder) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       10e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
		}),
		recorder:  recorder,
		retryBase: 500 * time.Millisecond,
	}
}

// Run consumes until ctx is done. Malformed or rejected events are logged
// and committed so they do not block the partition. Store failures are
// retried and the offset is not committed until the request is recorded.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		_ = c.reader.Close()
	}()

	cfg := c.reader.Config()
	slog.Info("kafka consumer started", "group", cfg.GroupID, "topic", cfg.Topic, "brokers", cfg.Brokers)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("kafka consumer shutting down")
				return nil
			}
			slog.Warn("kafka fetch error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchBackoff):
			}
			continue
		}

		if err := c.process(ctx, m.Value); err != nil {
			slog.Info("kafka consumer shutting down, offset left uncommitted", "offset", m.Offset, "partition", m.Partition)
			return nil
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			slog.Warn("kafka commit error", "error", err)
		}
	}
}

// process records one request, retrying store failures until it succeeds or
// ctx is done. A nil return means the offset may be committed.
func (c *Consumer) process(ctx context.Context, value []byte) error {
	backoff := retry.WithCappedDuration(maxRetryWait, retry.NewExponential(c.retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.handle(ctx, value)
		switch {
		case err == nil:
			return nil
		case permanent(err):
			slog.Warn("kafka dropping notification request", "error", err)
			return nil
		}
		slog.Warn("kafka handler error, will retry", "error", err)
		return retry.RetryableError(err)
	})
}

func permanent(err error) bool {
	return errors.Is(err, errMalformed) ||
		errors.Is(err, service.ErrInvalidArgument) ||
		errors.Is(err, service.ErrNotFound)
}

func (c *Consumer) handle(ctx context.Context, value []byte) error {
	var evt NotificationRequested
	if err := json.Unmarshal(value, &evt); err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}

	n, err := c.recorder.Record(ctx, service.RecordInput{
		RecipientID: evt.RecipientID,
		SenderID:    evt.SenderID,
		Type:        evt.Type,
		Content:     evt.Content,
		Reference:   evt.Reference,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidArgument) || errors.Is(err, service.ErrNotFound) {
			return fmt.Errorf("rejected notification request: %w", err)
		}
		return err
	}

	slog.DebugContext(ctx, "notification request recorded", "id", n.ID, "type", n.Type)
	return nil
}
