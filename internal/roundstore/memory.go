package roundstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"casino-settlement-go/internal/blackjack"

	"github.com/karlseguin/ccache/v2"
)

var _ blackjack.RoundStore = (*Memory)(nil)

// Memory keeps rounds in an in-process TTL cache. Rounds are stored as JSON
// so callers always get a private copy.
type Memory struct {
	cache *ccache.Cache
}

func NewMemory(maxRounds int64) *Memory {
	if maxRounds <= 0 {
		maxRounds = 10_000
	}
	return &Memory{
		cache: ccache.New(ccache.Configure().
			MaxSize(maxRounds).
			ItemsToPrune(100)),
	}
}

func (m *Memory) Get(ctx context.Context, userId string) (*blackjack.Round, error) {
	item := m.cache.Get(key(userId))
	if item == nil || item.Expired() {
		return nil, blackjack.ErrRoundNotFound
	}

	data, ok := item.Value().([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected cached round type %T", item.Value())
	}
	var round blackjack.Round
	if err := json.Unmarshal(data, &round); err != nil {
		return nil, fmt.Errorf("failed to decode round: %w", err)
	}
	return &round, nil
}

func (m *Memory) Save(ctx context.Context, round *blackjack.Round, ttl time.Duration) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to encode round: %w", err)
	}
	m.cache.Set(key(round.UserId), data, ttl)
	return nil
}

func (m *Memory) Delete(ctx context.Context, userId string) error {
	m.cache.Delete(key(userId))
	return nil
}

func (m *Memory) Stop() {
	m.cache.Stop()
}
