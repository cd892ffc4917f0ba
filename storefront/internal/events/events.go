package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/pkg/kafka"
)

type Type string

const (
	Login             Type = "login"
	Logout            Type = "logout"
	Register          Type = "register"
	TransactionCreate Type = "transaction.create"
)

type Event struct {
	Type     Type
	UserID   string
	Subject  string
	Quantity int
	Amount   int64
}

// Publisher reports client usage. Publishing is fire and forget: failures
// are logged by the implementation and never reach the caller.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

type statsLog struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
	now      func() time.Time
}

func NewStatsLog(producer sarama.SyncProducer, topic string, log *zap.Logger) Publisher {
	if topic == "" {
		topic = kafka.ClientEventsTopic
	}
	return &statsLog{
		producer: producer,
		topic:    topic,
		log:      log.Named("events"),
		now:      time.Now,
	}
}

func (l *statsLog) Publish(ctx context.Context, e Event) {
	if ctx.Err() != nil {
		return
	}
	data, err := json.Marshal(kafka.EventStats{
		Type:      string(e.Type),
		UserID:    e.UserID,
		Subject:   e.Subject,
		Quantity:  e.Quantity,
		Amount:    e.Amount,
		Timestamp: l.now().UTC(),
	})
	if err != nil {
		l.log.Warn("encode event", zap.Error(err))
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: l.topic,
		Key:   sarama.StringEncoder(e.UserID),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := l.producer.SendMessage(msg); err != nil {
		l.log.Warn("publish event", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

// OrNop lets callers hold a nil Publisher.
func OrNop(p Publisher) Publisher {
	if p == nil {
		return Nop{}
	}
	return p
}
