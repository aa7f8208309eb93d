package blackjack

import (
	"casino-settlement-go/internal/cards"
	"casino-settlement-go/internal/models"

	"github.com/shopspring/decimal"
)

// Result is returned by every engine operation. Success=false with a nil
// error is a rejected action; the round is unchanged.
type Result struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Round   *View               `json:"round,omitempty"`
	Balance *models.UserBalance `json:"balance,omitempty"`
}

// View is the player-facing state of a round. The dealer's hole card stays
// hidden while the round is active.
type View struct {
	GameId        string          `json:"game_id"`
	SessionId     string          `json:"session_id"`
	BetAmount     decimal.Decimal `json:"bet_amount"`
	PlayerHand    []cards.Card    `json:"player_hand"`
	PlayerValue   int             `json:"player_value"`
	SplitHand     []cards.Card    `json:"split_hand,omitempty"`
	SplitValue    int             `json:"split_value,omitempty"`
	DealerHand    []cards.Card    `json:"dealer_hand"`
	DealerValue   int             `json:"dealer_value"`
	IsSplit       bool            `json:"is_split"`
	IsSplitActive bool            `json:"is_split_active"`
	Status        Status          `json:"status"`
	HandOutcomes  []Status        `json:"hand_outcomes,omitempty"`
	WinAmount     decimal.Decimal `json:"win_amount"`
}

func NewView(r *Round) *View {
	v := &View{
		GameId:        r.GameId,
		SessionId:     r.SessionId,
		BetAmount:     r.BetAmount,
		PlayerHand:    r.PlayerHand,
		PlayerValue:   cards.HandValue(r.PlayerHand),
		IsSplit:       r.IsSplit,
		IsSplitActive: r.IsSplitActive,
		Status:        r.Status,
		HandOutcomes:  r.HandOutcomes,
		WinAmount:     decimal.Zero,
	}
	if r.IsSplit {
		v.SplitHand = r.SplitHand
		v.SplitValue = cards.HandValue(r.SplitHand)
	}

	if r.Status == StatusActive && len(r.DealerHand) > 0 {
		v.DealerHand = r.DealerHand[:1]
	} else {
		v.DealerHand = r.DealerHand
	}
	v.DealerValue = cards.HandValue(v.DealerHand)
	return v
}

func balanceOf(u *models.User) *models.UserBalance {
	if u == nil {
		return nil
	}
	b := models.NewUserBalance(u)
	return &b
}
