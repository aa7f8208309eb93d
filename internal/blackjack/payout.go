package blackjack

import (
	"casino-settlement-go/internal/cards"
	"casino-settlement-go/internal/models"

	"github.com/shopspring/decimal"
)

var (
	blackjackMultiplier = decimal.RequireFromString("1.5")
	surrenderMultiplier = decimal.RequireFromString("0.5")
)

// Settlement is the balance effect of a finished round. Only one of the two
// sides is set for a single hand; a split round may carry both.
type Settlement struct {
	Credit decimal.Decimal
	Deduct decimal.Decimal
}

func (s Settlement) Net() decimal.Decimal {
	return s.Credit.Sub(s.Deduct)
}

// Adjustment nets the settlement into the single balance change applied at settlement.
func (s Settlement) Adjustment() models.BalanceAdjustment {
	net := s.Net()
	switch {
	case net.IsPositive():
		return models.BalanceAdjustment{Kind: models.AdjustCredit, Amount: net}
	case net.IsNegative():
		return models.BalanceAdjustment{Kind: models.AdjustDeduct, Amount: net.Neg()}
	default:
		return models.BalanceAdjustment{}
	}
}

// Payout maps a terminal status and stake to its balance effect.
func Payout(status Status, bet decimal.Decimal) Settlement {
	switch status {
	case StatusBlackjack:
		return Settlement{Credit: bet.Mul(blackjackMultiplier)}
	case StatusPlayerWon, StatusDealerBusted:
		return Settlement{Credit: bet}
	case StatusSurrendered:
		return Settlement{Deduct: bet.Mul(surrenderMultiplier)}
	case StatusPlayerBusted, StatusDealerWon:
		return Settlement{Deduct: bet}
	default:
		return Settlement{}
	}
}

// SplitPayout sums the per-hand payouts of a split round.
func SplitPayout(outcomes []Status, handBet decimal.Decimal) Settlement {
	total := Settlement{Credit: decimal.Zero, Deduct: decimal.Zero}
	for _, outcome := range outcomes {
		p := Payout(outcome, handBet)
		total.Credit = total.Credit.Add(p.Credit)
		total.Deduct = total.Deduct.Add(p.Deduct)
	}
	return total
}

// Settlement returns the balance effect of a finished round.
func (r *Round) Settlement() Settlement {
	if r.IsSplit && len(r.HandOutcomes) > 0 {
		return SplitPayout(r.HandOutcomes, r.HandBet())
	}
	return Payout(r.Status, r.BetAmount)
}

// GameResult maps the round onto the session result.
func (r *Round) GameResult() models.GameResult {
	net := r.Settlement().Net()
	switch {
	case net.IsPositive():
		return models.ResultWin
	case net.IsNegative():
		return models.ResultLoss
	default:
		return models.ResultDraw
	}
}

// compareHands decides a standing hand against the dealer's final hand.
func compareHands(player, dealer []cards.Card) Status {
	if cards.IsBust(player) {
		return StatusPlayerBusted
	}
	if cards.IsBust(dealer) {
		return StatusDealerBusted
	}

	pv, dv := cards.HandValue(player), cards.HandValue(dealer)
	switch {
	case pv > dv:
		return StatusPlayerWon
	case pv < dv:
		return StatusDealerWon
	default:
		return StatusDraw
	}
}

// splitHandOutcome is compareHands with a two-card 21 paid as a blackjack
// unless the dealer holds one too.
func splitHandOutcome(hand, dealer []cards.Card) Status {
	if cards.IsBlackjack(hand) && !cards.IsBlackjack(dealer) {
		return StatusBlackjack
	}
	return compareHands(hand, dealer)
}

// aggregateStatus folds split hand outcomes into one round status.
func aggregateStatus(outcomes []Status, handBet decimal.Decimal) Status {
	net := SplitPayout(outcomes, handBet).Net()
	allBusted, anyDealerBust := true, false
	for _, o := range outcomes {
		if o != StatusPlayerBusted {
			allBusted = false
		}
		if o == StatusDealerBusted {
			anyDealerBust = true
		}
	}

	switch {
	case net.IsPositive() && anyDealerBust:
		return StatusDealerBusted
	case net.IsPositive():
		return StatusPlayerWon
	case net.IsNegative() && allBusted:
		return StatusPlayerBusted
	case net.IsNegative():
		return StatusDealerWon
	default:
		return StatusDraw
	}
}
