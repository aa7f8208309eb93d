package price

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrPriceUnavailable = errors.New("price unavailable")

// Source fetches a live quote.
type Source interface {
	FetchPrice(ctx context.Context, asset, fiat string) (decimal.Decimal, error)
}

// Oracle is the price view used by the scanner and withdrawals.
type Oracle interface {
	// SpotPrice returns a fresh (or recently cached) quote, or ErrPriceUnavailable.
	SpotPrice(ctx context.Context, asset, fiat string) (decimal.Decimal, error)
	// LastKnownPrice returns the most recent quote ever seen, however old.
	LastKnownPrice(asset, fiat string) (decimal.Decimal, bool)
}

// Resolve prefers a live quote and falls back to the last known one. live
// reports which one was used.
func Resolve(ctx context.Context, o Oracle, asset, fiat string) (price decimal.Decimal, live bool, err error) {
	p, err := o.SpotPrice(ctx, asset, fiat)
	if err == nil {
		return p, true, nil
	}
	if last, ok := o.LastKnownPrice(asset, fiat); ok {
		return last, false, nil
	}
	return decimal.Zero, false, err
}
