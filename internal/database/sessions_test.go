package database

import (
	"context"
	"errors"
	"testing"

	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestSettleGameSession_AppliesCreditOnce(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	user := createTestUser(t, service, "player@example.com")
	user = fundUser(t, service, user.Id, decimal.NewFromInt(100), "fund-1")

	session := &models.GameSession{
		UserId:        user.Id,
		GameType:      models.GameBlackjack,
		BetAmount:     decimal.NewFromInt(10),
		BalanceBefore: user.Total(),
		BalanceAfter:  user.Total(),
	}
	if err := service.CreateGameSession(ctx, session); err != nil {
		t.Fatalf("CreateGameSession failed: %v", err)
	}

	params := store.SettleSessionParams{
		SessionId:  session.Id,
		Result:     models.ResultWin,
		WinAmount:  decimal.NewFromInt(20),
		Adjustment: models.BalanceAdjustment{Kind: models.AdjustCredit, Amount: decimal.NewFromInt(20)},
	}
	settled, updated, err := service.SettleGameSession(ctx, params)
	if err != nil {
		t.Fatalf("SettleGameSession failed: %v", err)
	}

	if !settled.Settled || settled.SettledAt == nil {
		t.Error("Expected session to be settled")
	}
	if !updated.BalanceFiat.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected fiat 10, got %s", updated.BalanceFiat.String())
	}
	if !updated.BalanceCrypto.Equal(decimal.NewFromInt(110)) {
		t.Errorf("Expected crypto 110, got %s", updated.BalanceCrypto.String())
	}
	if !settled.BalanceAfter.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected balance after 120, got %s", settled.BalanceAfter.String())
	}

	// Second settle must be rejected and leave the balance alone
	_, _, err = service.SettleGameSession(ctx, params)
	if !errors.Is(err, store.ErrSessionAlreadySettled) {
		t.Fatalf("Expected ErrSessionAlreadySettled, got %v", err)
	}

	reloaded, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if !reloaded.Total().Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected total 120 after duplicate settle, got %s", reloaded.Total().String())
	}

	if err := service.ReconcileUserBalance(ctx, user.Id); err != nil {
		t.Errorf("ReconcileUserBalance failed: %v", err)
	}
}

func TestSettleGameSession_DeductTakesCryptoFirst(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	user := createTestUser(t, service, "loser@example.com")
	user = fundUser(t, service, user.Id, decimal.NewFromInt(5), "fund-1")

	// Win 20 first so fiat holds 10 and crypto 15
	win := &models.GameSession{UserId: user.Id, GameType: models.GameRoulette, BetAmount: decimal.NewFromInt(1)}
	if err := service.CreateGameSession(ctx, win); err != nil {
		t.Fatalf("CreateGameSession failed: %v", err)
	}
	if _, _, err := service.SettleGameSession(ctx, store.SettleSessionParams{
		SessionId:  win.Id,
		Result:     models.ResultWin,
		Adjustment: models.BalanceAdjustment{Kind: models.AdjustCredit, Amount: decimal.NewFromInt(20)},
	}); err != nil {
		t.Fatalf("SettleGameSession failed: %v", err)
	}

	loss := &models.GameSession{UserId: user.Id, GameType: models.GameRoulette, BetAmount: decimal.NewFromInt(18)}
	if err := service.CreateGameSession(ctx, loss); err != nil {
		t.Fatalf("CreateGameSession failed: %v", err)
	}
	_, updated, err := service.SettleGameSession(ctx, store.SettleSessionParams{
		SessionId:  loss.Id,
		Result:     models.ResultLoss,
		Adjustment: models.BalanceAdjustment{Kind: models.AdjustDeduct, Amount: decimal.NewFromInt(18)},
	})
	if err != nil {
		t.Fatalf("SettleGameSession failed: %v", err)
	}

	if !updated.BalanceCrypto.IsZero() {
		t.Errorf("Expected crypto 0, got %s", updated.BalanceCrypto.String())
	}
	if !updated.BalanceFiat.Equal(decimal.NewFromInt(7)) {
		t.Errorf("Expected fiat 7, got %s", updated.BalanceFiat.String())
	}
	if err := service.ReconcileUserBalance(ctx, user.Id); err != nil {
		t.Errorf("ReconcileUserBalance failed: %v", err)
	}
}

func TestSettleGameSession_UnknownSession(t *testing.T) {
	service := setupTestService(t)

	_, _, err := service.SettleGameSession(context.Background(), store.SettleSessionParams{SessionId: "missing"})
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetUserGameSessions_NewestFirst(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	user := createTestUser(t, service, "history@example.com")
	var ids []string
	for i := 0; i < 3; i++ {
		session := &models.GameSession{UserId: user.Id, GameType: models.GameBlackjack, BetAmount: decimal.NewFromInt(int64(i + 1))}
		if err := service.CreateGameSession(ctx, session); err != nil {
			t.Fatalf("CreateGameSession failed: %v", err)
		}
		ids = append(ids, session.Id)
	}

	sessions, err := service.GetUserGameSessions(ctx, user.Id, 2, 0)
	if err != nil {
		t.Fatalf("GetUserGameSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].Id != ids[2] {
		t.Errorf("Expected newest session first, got %s", sessions[0].Id)
	}
	if sessions[0].Result != models.ResultPending {
		t.Errorf("Expected pending result, got %s", sessions[0].Result)
	}
}
