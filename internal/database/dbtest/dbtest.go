// Package dbtest opens throwaway in-memory stores for package tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"casino-settlement-go/internal/database"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"

	"github.com/shopspring/decimal"
)

// New returns an empty in-memory store closed at test cleanup.
func New(t testing.TB) *database.Service {
	t.Helper()

	// One connection keeps the in-memory database alive across calls
	service, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

// User creates a user holding exactly fiat and crypto. Balances are seeded
// through a recorded deposit and game settlements, so the subledger stays
// consistent. Any positive fiat leaves seed sessions in the history.
func User(t testing.TB, s *database.Service, email string, fiat, crypto decimal.Decimal) *models.User {
	t.Helper()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "Test User", email)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if surplus := crypto.Sub(fiat); surplus.IsPositive() {
		_, _, err := s.RecordDeposit(ctx, store.RecordDepositParams{
			Deposit: models.DepositParams{
				UserId:  user.Id,
				Network: "test",
				Asset:   "SOL",
				Amount:  surplus,
				TxHash:  "seed-" + user.Id,
				Price:   decimal.NewFromInt(1),
			},
			EurAmount: surplus,
			Credit:    true,
		})
		if err != nil {
			t.Fatalf("RecordDeposit failed: %v", err)
		}
	}

	if fiat.IsPositive() {
		// A credit splits evenly, a deduct takes crypto first.
		adjustments := []models.BalanceAdjustment{
			{Kind: models.AdjustCredit, Amount: fiat.Mul(decimal.NewFromInt(2))},
		}
		if deficit := fiat.Sub(crypto); deficit.IsPositive() {
			adjustments = append(adjustments, models.BalanceAdjustment{Kind: models.AdjustDeduct, Amount: deficit})
		}
		for _, adj := range adjustments {
			session := &models.GameSession{UserId: user.Id, GameType: models.GameRoulette}
			if err := s.CreateGameSession(ctx, session); err != nil {
				t.Fatalf("CreateGameSession failed: %v", err)
			}
			if _, _, err := s.SettleGameSession(ctx, store.SettleSessionParams{
				SessionId:  session.Id,
				Result:     models.ResultDraw,
				Details:    "seed",
				Adjustment: adj,
			}); err != nil {
				t.Fatalf("SettleGameSession failed: %v", err)
			}
		}
	}

	user, err = s.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if !user.BalanceFiat.Equal(fiat) || !user.BalanceCrypto.Equal(crypto) {
		t.Fatalf("Seeded balance %s/%s, want %s/%s", user.BalanceFiat, user.BalanceCrypto, fiat, crypto)
	}
	return user
}
