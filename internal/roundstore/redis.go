package roundstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"casino-settlement-go/internal/blackjack"
	"casino-settlement-go/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const KeyBlackjackRound = "blackjack:round:%s"

var _ blackjack.RoundStore = (*Redis)(nil)

func key(userId string) string {
	return fmt.Sprintf(KeyBlackjackRound, userId)
}

// Redis keeps rounds in Redis so several API processes can share them
type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, cfg models.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	zap.L().Info("Redis round store connected", zap.String("addr", cfg.Addr))
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, userId string) (*blackjack.Round, error) {
	data, err := r.client.Get(ctx, key(userId)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, blackjack.ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to read round: %w", err)
	}

	var round blackjack.Round
	if err := json.Unmarshal(data, &round); err != nil {
		return nil, fmt.Errorf("failed to decode round: %w", err)
	}
	return &round, nil
}

func (r *Redis) Save(ctx context.Context, round *blackjack.Round, ttl time.Duration) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to encode round: %w", err)
	}
	if err := r.client.Set(ctx, key(round.UserId), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write round: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, userId string) error {
	if err := r.client.Del(ctx, key(userId)).Err(); err != nil {
		return fmt.Errorf("failed to delete round: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
