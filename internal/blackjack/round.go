package blackjack

import (
	"context"
	"errors"
	"strings"
	"time"

	"casino-settlement-go/internal/cards"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive       Status = "active"
	StatusPlayerWon    Status = "player_won"
	StatusDealerWon    Status = "dealer_won"
	StatusDraw         Status = "draw"
	StatusPlayerBusted Status = "player_busted"
	StatusDealerBusted Status = "dealer_busted"
	StatusBlackjack    Status = "blackjack"
	StatusSurrendered  Status = "surrendered"
)

// Terminal reports whether the round is over and waiting for settlement.
func (s Status) Terminal() bool {
	return s != StatusActive
}

// Round is the in-play state of one blackjack round. It lives in a RoundStore
// keyed by user id until settlement.
type Round struct {
	GameId        string          `json:"game_id"`
	UserId        string          `json:"user_id"`
	SessionId     string          `json:"session_id"`
	BetAmount     decimal.Decimal `json:"bet_amount"`
	PlayerHand    []cards.Card    `json:"player_hand"`
	SplitHand     []cards.Card    `json:"split_hand,omitempty"`
	DealerHand    []cards.Card    `json:"dealer_hand"`
	IsSplit       bool            `json:"is_split"`
	IsSplitActive bool            `json:"is_split_active"`
	Status        Status          `json:"status"`
	// HandOutcomes holds the per-hand result of a split round once it ends.
	HandOutcomes []Status    `json:"hand_outcomes,omitempty"`
	Shoe         *cards.Shoe `json:"shoe"`
	CreatedAt    time.Time   `json:"created_at"`
}

// ActiveHand returns the hand the player is currently acting on.
func (r *Round) ActiveHand() []cards.Card {
	if r.IsSplit && r.IsSplitActive {
		return r.SplitHand
	}
	return r.PlayerHand
}

func (r *Round) drawToActiveHand() cards.Card {
	c := r.Shoe.Draw()
	if r.IsSplit && r.IsSplitActive {
		r.SplitHand = append(r.SplitHand, c)
	} else {
		r.PlayerHand = append(r.PlayerHand, c)
	}
	return c
}

// HandBet is the stake riding on each hand. A split round carries two equal hands.
func (r *Round) HandBet() decimal.Decimal {
	if r.IsSplit {
		return r.BetAmount.Div(decimal.NewFromInt(2))
	}
	return r.BetAmount
}

// Details summarizes the final hands for the session record.
func (r *Round) Details() string {
	var b strings.Builder
	b.WriteString("player: ")
	b.WriteString(cards.FormatHand(r.PlayerHand))
	if r.IsSplit {
		b.WriteString(" | split: ")
		b.WriteString(cards.FormatHand(r.SplitHand))
	}
	b.WriteString(" | dealer: ")
	b.WriteString(cards.FormatHand(r.DealerHand))
	b.WriteString(" | status: ")
	b.WriteString(string(r.Status))
	return b.String()
}

var ErrRoundNotFound = errors.New("no active blackjack round")

// RoundStore holds at most one round per user. Implementations must return
// ErrRoundNotFound for a missing or expired round and hand out copies, so a
// mutation is visible only after Save.
type RoundStore interface {
	Get(ctx context.Context, userId string) (*Round, error)
	Save(ctx context.Context, round *Round, ttl time.Duration) error
	Delete(ctx context.Context, userId string) error
}
