// Package feed carries row-level change events between connected instances
// over Redis pub/sub, one channel per table. Delivery is at-least-once and
// unordered across rows; a publisher also receives its own events echoed
// back, so every consumer must apply events idempotently.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"raffle-board-backend/internal/common/logger"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

const (
	TableTickets = "tickets"
	TableSellers = "sellers"
	TableConfig  = "raffle_config"

	channelPrefix = "feed:"
)

// Event is one row change. Row holds the new row for inserts and updates;
// for deletes it holds at least the row id.
type Event struct {
	Table string          `json:"table"`
	Type  EventType       `json:"type"`
	Row   json.RawMessage `json:"row"`
}

// DecodeRow unmarshals the event row into dest.
func (e Event) DecodeRow(dest interface{}) error {
	return json.Unmarshal(e.Row, dest)
}

func channelFor(table string) string {
	return channelPrefix + table
}

// Publisher pushes row events after committed writes. Publish failures are
// logged and swallowed: the write already succeeded, peers catch up on their
// next full load.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, table string, typ EventType, row interface{}) {
	rowData, err := json.Marshal(row)
	if err != nil {
		logger.Error().Err(err).Str("table", table).Msg("Failed to marshal feed row")
		return
	}

	event := Event{Table: table, Type: typ, Row: rowData}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("table", table).Msg("Failed to marshal feed event")
		return
	}

	if err := p.client.Publish(ctx, channelFor(table), data).Err(); err != nil {
		logger.Error().Err(err).
			Str("table", table).
			Str("type", string(typ)).
			Msg("Failed to publish feed event")
	}
}

// Handler processes one event for a table. Handlers run on the subscriber
// goroutine and must not block.
type Handler func(event Event)

// Subscriber dispatches incoming events to per-table handlers.
type Subscriber struct {
	client   *redis.Client
	id       string
	mu       sync.Mutex
	handlers map[string]Handler
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{
		client:   client,
		id:       uuid.New().String(),
		handlers: make(map[string]Handler),
	}
}

// Handle registers the handler for a table. Must be called before Run.
func (s *Subscriber) Handle(table string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[table] = handler
}

// Run subscribes to all registered tables and dispatches until ctx is
// cancelled. On a broken subscription it resubscribes with backoff.
func (s *Subscriber) Run(ctx context.Context) {
	s.mu.Lock()
	channels := make([]string, 0, len(s.handlers))
	for table := range s.handlers {
		channels = append(channels, channelFor(table))
	}
	s.mu.Unlock()

	if len(channels) == 0 {
		logger.Warn().Msg("Feed subscriber started with no handlers")
		return
	}

	logger.Info().
		Str("subscriber_id", s.id).
		Strs("channels", channels).
		Msg("Starting feed subscriber")

	for {
		if err := s.consume(ctx, channels); err != nil {
			if ctx.Err() != nil {
				logger.Info().Str("subscriber_id", s.id).Msg("Stopping feed subscriber")
				return
			}
			logger.Error().Err(err).Msg("Feed subscription lost, resubscribing")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		return
	}
}

func (s *Subscriber) consume(ctx context.Context, channels []string) error {
	pubsub := s.client.Subscribe(ctx, channels...)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel closed")
			}
			s.dispatch(msg.Payload)
		}
	}
}

func (s *Subscriber) dispatch(payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.Error().Err(err).Msg("Failed to decode feed event")
		return
	}

	s.mu.Lock()
	handler, ok := s.handlers[event.Table]
	s.mu.Unlock()
	if !ok {
		return
	}

	handler(event)
}
