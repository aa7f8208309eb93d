package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	RoutingGameSessionSettled = "game_session.settled"
	RoutingDepositCredited    = "deposit.credited"
)

// GameSessionSettled is emitted once per settled round
type GameSessionSettled struct {
	SessionId     string          `json:"session_id"`
	UserId        string          `json:"user_id"`
	GameType      string          `json:"game_type"`
	BetAmount     decimal.Decimal `json:"bet_amount"`
	Result        string          `json:"result"`
	WinAmount     decimal.Decimal `json:"win_amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	SettledAt     time.Time       `json:"settled_at"`
}

// DepositCredited is emitted once per credited deposit
type DepositCredited struct {
	DepositId  string          `json:"deposit_id"`
	UserId     string          `json:"user_id"`
	TxHash     string          `json:"tx_hash"`
	Asset      string          `json:"asset"`
	Amount     decimal.Decimal `json:"amount"`
	EurAmount  decimal.Decimal `json:"eur_amount"`
	CreditedAt time.Time       `json:"credited_at"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// AMQPPublisher publishes JSON events to a durable topic exchange
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Declare exchange (idempotent)
	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	zap.L().Info("Event publisher initialized", zap.String("exchange", exchange))

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	zap.L().Debug("Published event", zap.String("routing_key", routingKey))
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		zap.L().Warn("Error closing channel", zap.Error(err))
	}
	if err := p.conn.Close(); err != nil {
		zap.L().Warn("Error closing connection", zap.Error(err))
		return err
	}
	zap.L().Info("Event publisher closed")
	return nil
}

// NoopPublisher drops events when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	zap.L().Debug("Event dropped, no broker configured", zap.String("routing_key", routingKey))
	return nil
}

func (NoopPublisher) Close() error { return nil }

// RecordingPublisher keeps published events in memory
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []Recorded
}

type Recorded struct {
	RoutingKey string
	Payload    any
}

func (r *RecordingPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Recorded{RoutingKey: routingKey, Payload: payload})
	return nil
}

func (r *RecordingPublisher) Close() error { return nil }

// Count returns how many events were published with routingKey.
func (r *RecordingPublisher) Count(routingKey string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.Events {
		if e.RoutingKey == routingKey {
			n++
		}
	}
	return n
}
