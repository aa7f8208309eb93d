package roulette

import (
	"context"
	"errors"
	"fmt"

	"casino-settlement-go/internal/ledger"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"
	"casino-settlement-go/internal/userlock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const genericFailure = "the spin could not be completed, please try again"

// Result is returned by PlaceBets. Success=false with a nil error is a
// rejected bet set; nothing was recorded.
type Result struct {
	Success    bool                `json:"success"`
	Error      string              `json:"error,omitempty"`
	SessionId  string              `json:"session_id,omitempty"`
	Evaluation *Evaluation         `json:"evaluation,omitempty"`
	Result     models.GameResult   `json:"result,omitempty"`
	WinAmount  decimal.Decimal     `json:"win_amount"`
	Balance    *models.UserBalance `json:"balance,omitempty"`
}

// Engine plays one roulette spin per call, start to settlement
type Engine struct {
	store  store.Store
	ledger *ledger.Service
	locks  *userlock.Locker
	cfg    models.RouletteConfig
	spin   Spinner
}

type Option func(*Engine)

// WithSpinner replaces the uniform wheel.
func WithSpinner(s Spinner) Option {
	return func(e *Engine) {
		e.spin = s
	}
}

func NewEngine(s store.Store, l *ledger.Service, locks *userlock.Locker, cfg models.RouletteConfig, opts ...Option) *Engine {
	if locks == nil {
		locks = userlock.New()
	}
	e := &Engine{store: s, ledger: l, locks: locks, cfg: cfg, spin: UniformSpinner}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) validate(bets []Bet, total decimal.Decimal) string {
	if !e.cfg.Enabled {
		return "roulette is currently disabled"
	}
	if len(bets) == 0 {
		return "no bets placed"
	}
	for _, b := range bets {
		if err := b.Validate(); err != nil {
			return err.Error()
		}
	}
	if total.LessThan(e.cfg.MinBet) {
		return fmt.Sprintf("total bet must be at least %s", e.cfg.MinBet.String())
	}
	if e.cfg.MaxBet.IsPositive() && total.GreaterThan(e.cfg.MaxBet) {
		return fmt.Sprintf("total bet must be at most %s", e.cfg.MaxBet.String())
	}
	return ""
}

// PlaceBets validates the bet set, spins once and settles the aggregate net:
// a net win is credited to crypto only, a net loss is deducted crypto first.
func (e *Engine) PlaceBets(ctx context.Context, userId string, bets []Bet) (*Result, error) {
	unlock := e.locks.Lock(userId)
	defer unlock()

	total := decimal.Zero
	for _, b := range bets {
		total = total.Add(b.Amount)
	}
	if reason := e.validate(bets, total); reason != "" {
		return &Result{Success: false, Error: reason}, nil
	}

	user, err := e.store.GetUserById(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return &Result{Success: false, Error: "user not found"}, nil
		}
		return &Result{Success: false, Error: genericFailure}, err
	}
	if user.Total().LessThan(total) {
		return &Result{Success: false, Error: "insufficient balance"}, nil
	}

	// A spin opens and settles its session under the user lock, so an open
	// roulette session here was left by a settle that failed. Nothing was
	// charged for it.
	if _, err := e.ledger.VoidOpen(ctx, userId, models.GameRoulette, "void: spin was never settled"); err != nil {
		return &Result{Success: false, Error: genericFailure}, err
	}

	session, err := e.ledger.Open(ctx, user, models.GameRoulette, total)
	if err != nil {
		return &Result{Success: false, Error: genericFailure}, err
	}

	number := e.spin()
	if number < 0 || number > MaxNumber {
		return &Result{Success: false, Error: genericFailure}, fmt.Errorf("spinner returned %d", number)
	}
	ev := Evaluate(bets, Classify(number))

	result := models.ResultDraw
	adjustment := models.BalanceAdjustment{}
	winAmount := decimal.Zero
	switch {
	case ev.Net.IsPositive():
		result = models.ResultWin
		winAmount = ev.Net
		adjustment = models.BalanceAdjustment{Kind: models.AdjustCreditCrypto, Amount: ev.Net}
	case ev.Net.IsNegative():
		result = models.ResultLoss
		adjustment = models.BalanceAdjustment{Kind: models.AdjustDeduct, Amount: ev.Net.Neg()}
	}

	settled, updated, err := e.ledger.Settle(ctx, store.SettleSessionParams{
		SessionId:  session.Id,
		Result:     result,
		WinAmount:  winAmount,
		Details:    fmt.Sprintf("number %d (%s), %d bets, %d winning", number, ev.Pocket.Color, len(bets), len(ev.Winning)),
		Adjustment: adjustment,
	})
	if err != nil {
		zap.L().Error("Roulette session left open, it is voided on the next spin",
			zap.String("user_id", userId),
			zap.String("session_id", session.Id),
			zap.Error(err))
		return &Result{Success: false, Error: genericFailure}, err
	}

	zap.L().Info("Roulette spin settled",
		zap.String("user_id", userId),
		zap.String("session_id", settled.Id),
		zap.Int("number", number),
		zap.String("total_bet", total.String()),
		zap.String("net", ev.Net.String()))

	balance := models.NewUserBalance(updated)
	return &Result{
		Success:    true,
		SessionId:  settled.Id,
		Evaluation: &ev,
		Result:     result,
		WinAmount:  winAmount,
		Balance:    &balance,
	}, nil
}
