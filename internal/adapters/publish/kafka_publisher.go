package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carpool-route-service/internal/domain"
	"carpool-route-service/internal/platform/obs"

	"github.com/segmentio/kafka-go"
)

// GroupResult is the message value published for each routed group.
type GroupResult struct {
	RunID       string       `json:"run_id"`
	Destination string       `json:"destination"`
	FinishedAt  time.Time    `json:"finished_at"`
	Group       domain.Group `json:"group"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits one message per group, keyed by the group column so a
// group's results stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher: no brokers configured")
	}
	if topic == "" {
		return nil, errors.New("kafka publisher: topic is required")
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

func (p *KafkaPublisher) PublishRun(ctx context.Context, run *domain.Run) (err error) {
	defer obs.Time(ctx, "kafka.PublishRun")(&err)

	msgs, err := runMessages(run)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish run %s: %w", run.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func runMessages(run *domain.Run) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(run.Groups))
	for _, g := range run.Groups {
		value, err := json.Marshal(GroupResult{
			RunID:       run.ID,
			Destination: run.Destination,
			FinishedAt:  run.FinishedAt,
			Group:       g,
		})
		if err != nil {
			return nil, fmt.Errorf("encode group %q of run %s: %w", g.Column, run.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(g.Column),
			Value: value,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(run.ID)},
			},
		})
	}
	return msgs, nil
}
