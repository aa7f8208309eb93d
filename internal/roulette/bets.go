package roulette

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type BetType string

const (
	StraightUp BetType = "straight_up"
	RedBet     BetType = "red"
	BlackBet   BetType = "black"
	EvenBet    BetType = "even"
	OddBet     BetType = "odd"
	LowBet     BetType = "low"
	HighBet    BetType = "high"
	Dozen1     BetType = "dozen_1"
	Dozen2     BetType = "dozen_2"
	Dozen3     BetType = "dozen_3"
	Column1    BetType = "column_1"
	Column2    BetType = "column_2"
	Column3    BetType = "column_3"
)

// Bet is one wager on the table. Number is required by straight-up bets and
// ignored by the others; nil keeps a missing number apart from zero.
type Bet struct {
	Type   BetType         `json:"type"`
	Number *int            `json:"number,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

// Odds returns the profit multiple paid on a winning bet.
func Odds(t BetType) int64 {
	switch t {
	case StraightUp:
		return 35
	case Dozen1, Dozen2, Dozen3, Column1, Column2, Column3:
		return 2
	default:
		return 1
	}
}

func (b Bet) Validate() error {
	if !b.Amount.IsPositive() {
		return fmt.Errorf("bet amount must be positive")
	}
	switch b.Type {
	case StraightUp:
		if b.Number == nil {
			return fmt.Errorf("straight-up bet needs a number")
		}
		if *b.Number < 0 || *b.Number > MaxNumber {
			return fmt.Errorf("straight-up number %d is off the wheel", *b.Number)
		}
	case RedBet, BlackBet, EvenBet, OddBet, LowBet, HighBet,
		Dozen1, Dozen2, Dozen3, Column1, Column2, Column3:
	default:
		return fmt.Errorf("unknown bet type %q", b.Type)
	}
	return nil
}

// Wins reports whether the bet wins on pocket. Zero loses every outside bet.
func (b Bet) Wins(p Pocket) bool {
	if b.Type == StraightUp {
		return b.Number != nil && *b.Number == p.Number
	}
	if p.Number == 0 {
		return false
	}

	switch b.Type {
	case RedBet:
		return p.Color == Red
	case BlackBet:
		return p.Color == Black
	case EvenBet:
		return p.Even
	case OddBet:
		return !p.Even
	case LowBet:
		return p.Low
	case HighBet:
		return !p.Low
	case Dozen1:
		return p.Dozen == 1
	case Dozen2:
		return p.Dozen == 2
	case Dozen3:
		return p.Dozen == 3
	case Column1:
		return p.Column == 1
	case Column2:
		return p.Column == 2
	case Column3:
		return p.Column == 3
	default:
		return false
	}
}

// Payout is the amount returned for a winning bet, stake included.
func (b Bet) Payout() decimal.Decimal {
	return b.Amount.Mul(decimal.NewFromInt(1 + Odds(b.Type)))
}

// Evaluation is the aggregate outcome of one spin
type Evaluation struct {
	Pocket   Pocket          `json:"pocket"`
	TotalBet decimal.Decimal `json:"total_bet"`
	Payout   decimal.Decimal `json:"payout"`
	Net      decimal.Decimal `json:"net"`
	Winning  []Bet           `json:"winning"`
}

// Evaluate settles every bet against pocket.
func Evaluate(bets []Bet, p Pocket) Evaluation {
	ev := Evaluation{Pocket: p, TotalBet: decimal.Zero, Payout: decimal.Zero}
	for _, b := range bets {
		ev.TotalBet = ev.TotalBet.Add(b.Amount)
		if b.Wins(p) {
			ev.Payout = ev.Payout.Add(b.Payout())
			ev.Winning = append(ev.Winning, b)
		}
	}
	ev.Net = ev.Payout.Sub(ev.TotalBet)
	return ev
}

// Straight is a straight-up bet on n.
func Straight(n int, amount decimal.Decimal) Bet {
	return Bet{Type: StraightUp, Number: &n, Amount: amount}
}
