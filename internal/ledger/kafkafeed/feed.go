// Package kafkafeed adapts the chain indexer's Kafka topic into the ledger
// Subscriber contract. The indexer publishes one JSON-encoded event per ledger
// event; this consumer fans each record out to every live subscription.
package kafkafeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"issuer-agent/internal/ledger"
)

// Feed consumes the ledger event topic and dispatches events to subscribers.
// Correlation is per process, so the feed reads every partition from the tail
// without a consumer group; a missed historical event is never a match anyway
// because subscriptions only exist while an operation is in flight.
type Feed struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(ledger.Event)
}

// New connects a Kafka consumer for the ledger event topic.
func New(brokers []string, topic string, logger *slog.Logger) (*Feed, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Feed{
		client: client,
		topic:  topic,
		logger: logger,
		subs:   make(map[uint64]func(ledger.Event)),
	}, nil
}

// EnsureTopic creates the event topic if the indexer has not yet. Safe to call
// on every startup.
func (f *Feed) EnsureTopic(ctx context.Context, partitions int32, replicas int16) error {
	adm := kadm.NewClient(f.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicas, nil, f.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", f.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Run polls the topic until ctx is cancelled, dispatching every decoded event
// to all current subscriptions. Records that do not decode are logged and
// skipped; a poisoned record must not stall confirmation of live operations.
func (f *Feed) Run(ctx context.Context) error {
	for {
		fetches := f.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			f.logger.Error("ledger feed fetch error",
				"topic", topic, "partition", partition, "error", err)
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			var ev ledger.Event
			if err := json.Unmarshal(rec.Value, &ev); err != nil {
				f.logger.Warn("skipping undecodable ledger event",
					"offset", rec.Offset, "error", err)
				return
			}
			f.dispatch(ev)
		})
	}
}

func (f *Feed) dispatch(ev ledger.Event) {
	f.mu.RLock()
	handlers := make([]func(ledger.Event), 0, len(f.subs))
	for _, h := range f.subs {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Subscribe registers onEvent for every event the feed observes from now on.
// The returned teardown is idempotent.
func (f *Feed) Subscribe(_ context.Context, onEvent func(ledger.Event)) (ledger.Unsubscribe, error) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs[id] = onEvent
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}, nil
}

// Close shuts the underlying Kafka client down.
func (f *Feed) Close() {
	f.client.Close()
}
