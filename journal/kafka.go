package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaJournal publishes each trade as a JSON message keyed by symbol.
type KafkaJournal struct {
	w       messageWriter
	timeout time.Duration
}

// NewKafka constructs a writer compatible with kafka-go v0.4.x.
func NewKafka(brokers []string, topic string) (*KafkaJournal, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka journal: no brokers")
	}
	if topic == "" {
		return nil, errors.New("kafka journal: no topic")
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Dialer:       dialer,
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	})
	return newKafkaJournal(w), nil
}

func newKafkaJournal(w messageWriter) *KafkaJournal {
	return &KafkaJournal{w: w, timeout: 10 * time.Second}
}

func (j *KafkaJournal) RecordTrade(t TradeRecord) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return persistErr("kafka encode", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	err = j.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(t.Symbol),
		Value: payload,
		Time:  t.Time,
	})
	if err != nil {
		return persistErr("kafka write", err)
	}
	return nil
}

func (j *KafkaJournal) Close() error {
	return j.w.Close()
}
