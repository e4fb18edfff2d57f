package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/eshuuux/saptrangi-backend/internal/domain/model"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	batchTimeout   = 10 * time.Millisecond
	publishTimeout = 2 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// 注文イベントをKafkaへ送る。キーは注文ID
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	// 1件ずつ同期で送るのでバッチが溜まるのを待たない
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		WriteTimeout: publishTimeout,
		MaxAttempts:  3,
	}
	return &KafkaPublisher{writer: writer, logger: logger.Named("events")}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev model.OrderEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.OrderID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}

	p.logger.Debug("order event published",
		zap.String("event_id", ev.ID),
		zap.String("type", string(ev.Type)),
		zap.Int64("order_id", ev.OrderID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// KAFKA_BROKERS未設定のとき
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev model.OrderEvent) error { return nil }
func (NopPublisher) Close() error                                          { return nil }
