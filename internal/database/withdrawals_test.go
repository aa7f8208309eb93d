package database

import (
	"context"
	"errors"
	"testing"

	"casino-settlement-go/internal/balance"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"

	"github.com/shopspring/decimal"
)

func createTestWithdrawal(t *testing.T, service *Service, userId string) *models.Withdrawal {
	t.Helper()

	withdrawal := &models.Withdrawal{
		UserId:        userId,
		TargetAddress: "target-address",
		Asset:         "SOL",
		Amount:        decimal.NewFromFloat(0.5),
		EurAmount:     decimal.NewFromInt(100),
		FeeEur:        decimal.RequireFromString("0.001"),
	}
	if err := service.CreateWithdrawal(context.Background(), withdrawal); err != nil {
		t.Fatalf("CreateWithdrawal failed: %v", err)
	}
	return withdrawal
}

func TestCompleteWithdrawal_DebitsCrypto(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	user := createTestUser(t, service, "withdrawer@example.com")
	fundUser(t, service, user.Id, decimal.NewFromInt(200), "fund-1")
	withdrawal := createTestWithdrawal(t, service, user.Id)

	if err := service.UpdateWithdrawalStatus(ctx, withdrawal.Id, models.WithdrawalApproved, "sig-out", ""); err != nil {
		t.Fatalf("UpdateWithdrawalStatus failed: %v", err)
	}

	debit := decimal.RequireFromString("100.001")
	completed, updated, err := service.CompleteWithdrawal(ctx, store.CompleteWithdrawalParams{
		WithdrawalId: withdrawal.Id,
		TxHash:       "sig-out",
		Debit:        debit,
	})
	if err != nil {
		t.Fatalf("CompleteWithdrawal failed: %v", err)
	}

	if completed.Status != models.WithdrawalSent {
		t.Errorf("Expected sent status, got %s", completed.Status)
	}
	expected := decimal.RequireFromString("99.999")
	if !updated.BalanceCrypto.Equal(expected) {
		t.Errorf("Expected crypto %s, got %s", expected.String(), updated.BalanceCrypto.String())
	}

	stored, err := service.GetWithdrawal(ctx, withdrawal.Id)
	if err != nil {
		t.Fatalf("GetWithdrawal failed: %v", err)
	}
	if stored.Status != models.WithdrawalSent || stored.TxHash != "sig-out" {
		t.Errorf("Expected sent with tx hash, got %s/%s", stored.Status, stored.TxHash)
	}

	// A sent withdrawal cannot be completed or moved again
	_, _, err = service.CompleteWithdrawal(ctx, store.CompleteWithdrawalParams{WithdrawalId: withdrawal.Id, TxHash: "sig-out", Debit: debit})
	if !errors.Is(err, store.ErrDuplicateTransaction) {
		t.Errorf("Expected ErrDuplicateTransaction, got %v", err)
	}
	if err := service.UpdateWithdrawalStatus(ctx, withdrawal.Id, models.WithdrawalRejected, "", "late"); err == nil {
		t.Error("Expected error updating a sent withdrawal")
	}

	if err := service.ReconcileUserBalance(ctx, user.Id); err != nil {
		t.Errorf("ReconcileUserBalance failed: %v", err)
	}
}

func TestCompleteWithdrawal_InsufficientCrypto(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	user := createTestUser(t, service, "broke@example.com")
	fundUser(t, service, user.Id, decimal.NewFromInt(50), "fund-1")
	withdrawal := createTestWithdrawal(t, service, user.Id)

	_, _, err := service.CompleteWithdrawal(ctx, store.CompleteWithdrawalParams{
		WithdrawalId: withdrawal.Id,
		TxHash:       "sig-out",
		Debit:        decimal.NewFromInt(100),
	})
	if !errors.Is(err, balance.ErrInsufficientCrypto) {
		t.Fatalf("Expected ErrInsufficientCrypto, got %v", err)
	}

	stored, err := service.GetWithdrawal(ctx, withdrawal.Id)
	if err != nil {
		t.Fatalf("GetWithdrawal failed: %v", err)
	}
	if stored.Status != models.WithdrawalPending {
		t.Errorf("Expected withdrawal to stay pending, got %s", stored.Status)
	}
}

func TestGetTransactionHistory_RecordsDeltas(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	user := createTestUser(t, service, "ledger@example.com")
	fundUser(t, service, user.Id, decimal.NewFromInt(30), "fund-1")
	fundUser(t, service, user.Id, decimal.NewFromInt(12), "fund-2")

	history, err := service.GetTransactionHistory(ctx, user.Id, 10, 0)
	if err != nil {
		t.Fatalf("GetTransactionHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(history))
	}

	latest := history[0]
	if latest.Reference != "fund-2" {
		t.Errorf("Expected newest transaction first, got %s", latest.Reference)
	}
	if !latest.CryptoDelta.Equal(decimal.NewFromInt(12)) || !latest.FiatDelta.IsZero() {
		t.Errorf("Unexpected deltas fiat=%s crypto=%s", latest.FiatDelta.String(), latest.CryptoDelta.String())
	}
	if !latest.BalanceBefore.Equal(decimal.NewFromInt(30)) || !latest.BalanceAfter.Equal(decimal.NewFromInt(42)) {
		t.Errorf("Unexpected balances before=%s after=%s", latest.BalanceBefore.String(), latest.BalanceAfter.String())
	}
}

func TestReconcileUserBalance_DetectsDrift(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	user := createTestUser(t, service, "drift@example.com")
	fundUser(t, service, user.Id, decimal.NewFromInt(10), "fund-1")

	if _, err := service.db.Exec("UPDATE users SET balance_fiat = '5' WHERE id = ?", user.Id); err != nil {
		t.Fatalf("Failed to corrupt balance: %v", err)
	}

	if err := service.ReconcileUserBalance(ctx, user.Id); err == nil {
		t.Error("Expected reconciliation to fail")
	}
}

func TestGetReservedWithdrawalTotal_CountsApprovedOnly(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	user := createTestUser(t, service, "reserved@example.com")
	fundUser(t, service, user.Id, decimal.NewFromInt(500), "fund-reserved")

	approved := createTestWithdrawal(t, service, user.Id)
	if err := service.UpdateWithdrawalStatus(ctx, approved.Id, models.WithdrawalApproved, "sig-pending", ""); err != nil {
		t.Fatalf("UpdateWithdrawalStatus failed: %v", err)
	}
	rejected := createTestWithdrawal(t, service, user.Id)
	if err := service.UpdateWithdrawalStatus(ctx, rejected.Id, models.WithdrawalRejected, "", "no funds"); err != nil {
		t.Fatalf("UpdateWithdrawalStatus failed: %v", err)
	}
	createTestWithdrawal(t, service, user.Id)

	reserved, err := service.GetReservedWithdrawalTotal(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetReservedWithdrawalTotal failed: %v", err)
	}
	expected := decimal.RequireFromString("100.001")
	if !reserved.Equal(expected) {
		t.Errorf("Expected reserved %s, got %s", expected.String(), reserved.String())
	}

	if _, _, err := service.CompleteWithdrawal(ctx, store.CompleteWithdrawalParams{
		WithdrawalId: approved.Id,
		TxHash:       "sig-pending",
		Debit:        expected,
	}); err != nil {
		t.Fatalf("CompleteWithdrawal failed: %v", err)
	}

	reserved, err = service.GetReservedWithdrawalTotal(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetReservedWithdrawalTotal failed: %v", err)
	}
	if !reserved.IsZero() {
		t.Errorf("Expected nothing reserved after completion, got %s", reserved.String())
	}
}
