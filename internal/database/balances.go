package database

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// sumDeltas folds the subledger history of a user into the fiat and crypto
// balances it implies.
func (s *SubledgerService) sumDeltas(ctx context.Context, userId string) (decimal.Decimal, decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, queryGetTransactionDeltas, userId)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to query transaction deltas: %w", err)
	}
	defer closeRows(rows)

	fiat, crypto := decimal.Zero, decimal.Zero
	for rows.Next() {
		var fiatStr, cryptoStr string
		if err := rows.Scan(&fiatStr, &cryptoStr); err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to scan transaction deltas: %w", err)
		}
		fiatDelta, err := decimal.NewFromString(fiatStr)
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to parse fiat delta '%s': %w", fiatStr, err)
		}
		cryptoDelta, err := decimal.NewFromString(cryptoStr)
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to parse crypto delta '%s': %w", cryptoStr, err)
		}
		fiat = fiat.Add(fiatDelta)
		crypto = crypto.Add(cryptoDelta)
	}

	if err := rows.Err(); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return fiat, crypto, nil
}

// ReconcileUserBalance verifies that the stored balances match the sum of all
// subledger transactions for the user
func (s *Service) ReconcileUserBalance(ctx context.Context, userId string) error {
	zap.L().Info("Reconciling balance", zap.String("user_id", userId))

	user, err := s.GetUserById(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	fiat, crypto, err := s.subledger.sumDeltas(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to calculate balance from transactions: %w", err)
	}

	// Exact decimal comparison
	if !user.BalanceFiat.Equal(fiat) || !user.BalanceCrypto.Equal(crypto) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("user_id", userId),
			zap.String("current_fiat", user.BalanceFiat.String()),
			zap.String("calculated_fiat", fiat.String()),
			zap.String("current_crypto", user.BalanceCrypto.String()),
			zap.String("calculated_crypto", crypto.String()))
		return fmt.Errorf("balance mismatch: current=%s/%s, calculated=%s/%s",
			user.BalanceFiat.String(), user.BalanceCrypto.String(), fiat.String(), crypto.String())
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("user_id", userId),
		zap.String("balance_fiat", user.BalanceFiat.String()),
		zap.String("balance_crypto", user.BalanceCrypto.String()))
	return nil
}
