package balance

import (
	"errors"
	"fmt"

	"casino-settlement-go/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientCrypto = errors.New("insufficient crypto balance")
	ErrUnknownAdjustment  = errors.New("unknown balance adjustment")
)

var two = decimal.NewFromInt(2)

// Deduct removes amount from the user, crypto first and the remainder from fiat.
// Callers must check Total() >= amount beforehand; fiat is allowed to go
// negative only when that check is skipped.
func Deduct(u *models.User, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}

	fromCrypto := decimal.Min(amount, decimal.Max(u.BalanceCrypto, decimal.Zero))
	u.BalanceCrypto = u.BalanceCrypto.Sub(fromCrypto)
	u.BalanceFiat = u.BalanceFiat.Sub(amount.Sub(fromCrypto))
}

// Credit splits amount 50/50 between fiat and crypto. An odd smallest unit goes to crypto.
func Credit(u *models.User, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}

	half := amount.Div(two)
	u.BalanceFiat = u.BalanceFiat.Add(half)
	u.BalanceCrypto = u.BalanceCrypto.Add(amount.Sub(half))
}

// CreditCrypto credits the full amount to the crypto side.
func CreditCrypto(u *models.User, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	u.BalanceCrypto = u.BalanceCrypto.Add(amount)
}

// DebitCrypto debits the crypto side only. There is no fiat fallback.
func DebitCrypto(u *models.User, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	if u.BalanceCrypto.LessThan(amount) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientCrypto, u.BalanceCrypto.String(), amount.String())
	}
	u.BalanceCrypto = u.BalanceCrypto.Sub(amount)
	return nil
}

// Covers reports whether the user's total balance covers amount.
func Covers(u *models.User, amount decimal.Decimal) bool {
	return u.Total().GreaterThanOrEqual(amount)
}

// Apply dispatches an adjustment onto the user. A deduction larger than the
// total is capped at the total so a settlement never leaves it negative.
func Apply(u *models.User, adj models.BalanceAdjustment) error {
	switch adj.Kind {
	case "":
		return nil
	case models.AdjustCredit:
		Credit(u, adj.Amount)
	case models.AdjustCreditCrypto:
		CreditCrypto(u, adj.Amount)
	case models.AdjustDeduct:
		Deduct(u, decimal.Min(adj.Amount, decimal.Max(u.Total(), decimal.Zero)))
	case models.AdjustDebitCrypto:
		return DebitCrypto(u, adj.Amount)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAdjustment, adj.Kind)
	}
	return nil
}
