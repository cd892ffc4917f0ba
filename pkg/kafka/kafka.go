package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

const ClientEventsTopic = "bookstore.client.events"

type Config struct {
	Addrs []string `yaml:"addrs" envconfig:"KAFKA_ADDRS"`
	Topic string   `yaml:"topic" envconfig:"KAFKA_TOPIC"`
}

func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

// EventStats is the wire form of a client usage event.
type EventStats struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true
	defaultCfg.Producer.Timeout = 5 * time.Second
	defaultCfg.Metadata.Retry.Max = 1

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}
