package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanWithdrawal(row rowScanner) (*models.Withdrawal, error) {
	var w models.Withdrawal
	var amountStr, eurStr, feeStr string
	err := row.Scan(&w.Id, &w.UserId, &w.TargetAddress, &w.Asset, &amountStr, &eurStr, &feeStr,
		&w.Status, &w.TxHash, &w.Reason, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if w.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	if w.EurAmount, err = decimal.NewFromString(eurStr); err != nil {
		return nil, fmt.Errorf("failed to parse eur_amount '%s': %w", eurStr, err)
	}
	if w.FeeEur, err = decimal.NewFromString(feeStr); err != nil {
		return nil, fmt.Errorf("failed to parse fee_eur '%s': %w", feeStr, err)
	}
	return &w, nil
}

func (s *Service) CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error {
	if withdrawal.Id == "" {
		withdrawal.Id = uuid.New().String()
	}
	now := time.Now().UTC()
	withdrawal.CreatedAt = now
	withdrawal.UpdatedAt = now
	if withdrawal.Status == "" {
		withdrawal.Status = models.WithdrawalPending
	}

	_, err := s.db.ExecContext(ctx, queryInsertWithdrawal,
		withdrawal.Id, withdrawal.UserId, withdrawal.TargetAddress, withdrawal.Asset,
		withdrawal.Amount.String(), withdrawal.EurAmount.String(), withdrawal.FeeEur.String(),
		string(withdrawal.Status), withdrawal.TxHash, withdrawal.Reason,
		withdrawal.CreatedAt, withdrawal.UpdatedAt)
	if err != nil {
		zap.L().Error("Failed to insert withdrawal", zap.String("user_id", withdrawal.UserId), zap.Error(err))
		return fmt.Errorf("unable to insert withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal created",
		zap.String("withdrawal_id", withdrawal.Id),
		zap.String("user_id", withdrawal.UserId),
		zap.String("amount", withdrawal.Amount.String()),
		zap.String("target", withdrawal.TargetAddress))
	return nil
}

// UpdateWithdrawalStatus moves a withdrawal that has not been sent yet. An
// empty txHash keeps the stored one.
func (s *Service) UpdateWithdrawalStatus(ctx context.Context, withdrawalId string, status models.WithdrawalStatus, txHash, reason string) error {
	result, err := s.db.ExecContext(ctx, queryUpdateWithdrawalStatus,
		string(status), txHash, reason, time.Now().UTC(), withdrawalId)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrWithdrawalNotFound, withdrawalId)
	}

	zap.L().Info("Withdrawal status updated",
		zap.String("withdrawal_id", withdrawalId),
		zap.String("status", string(status)),
		zap.String("tx_hash", txHash))
	return nil
}

// CompleteWithdrawal debits the crypto balance and marks the withdrawal sent
// in one transaction.
func (s *Service) CompleteWithdrawal(ctx context.Context, params store.CompleteWithdrawalParams) (*models.Withdrawal, *models.User, error) {
	var withdrawal *models.Withdrawal
	var user *models.User

	err := withModificationRetry(ctx, "complete_withdrawal", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer rollback(tx)

		withdrawal, err = scanWithdrawal(tx.QueryRowContext(ctx, queryGetWithdrawal, params.WithdrawalId))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", store.ErrWithdrawalNotFound, params.WithdrawalId)
			}
			return fmt.Errorf("unable to query withdrawal: %w", err)
		}
		if withdrawal.Status == models.WithdrawalSent {
			return fmt.Errorf("%w: withdrawal %s", store.ErrDuplicateTransaction, withdrawal.Id)
		}

		user, _, err = s.subledger.ApplyAdjustment(ctx, tx, BalanceMutationParams{
			UserId:          withdrawal.UserId,
			TransactionType: TransactionWithdrawal,
			Reference:       params.TxHash,
			Adjustment:      models.BalanceAdjustment{Kind: models.AdjustDebitCrypto, Amount: params.Debit},
		})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, queryUpdateWithdrawalStatus,
			string(models.WithdrawalSent), params.TxHash, "", now, withdrawal.Id); err != nil {
			return fmt.Errorf("failed to mark withdrawal sent: %w", err)
		}

		details := fmt.Sprintf("withdrawal %s: %s %s to %s, debit %s EUR, tx %s",
			withdrawal.Id, withdrawal.Amount.String(), withdrawal.Asset, withdrawal.TargetAddress,
			params.Debit.String(), params.TxHash)
		if err := addAuditLogTx(ctx, tx, withdrawal.UserId, "withdrawal", details); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit withdrawal: %w", err)
		}

		withdrawal.Status = models.WithdrawalSent
		withdrawal.TxHash = params.TxHash
		withdrawal.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("Withdrawal completed",
		zap.String("withdrawal_id", withdrawal.Id),
		zap.String("user_id", withdrawal.UserId),
		zap.String("debit", params.Debit.String()),
		zap.String("tx_hash", params.TxHash))

	return withdrawal, user, nil
}

func (s *Service) GetWithdrawal(ctx context.Context, withdrawalId string) (*models.Withdrawal, error) {
	w, err := scanWithdrawal(s.db.QueryRowContext(ctx, queryGetWithdrawal, withdrawalId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrWithdrawalNotFound, withdrawalId)
		}
		return nil, fmt.Errorf("unable to query withdrawal: %w", err)
	}
	return w, nil
}

func (s *Service) GetUserWithdrawals(ctx context.Context, userId string, limit, offset int) ([]models.Withdrawal, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUserWithdrawals, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("unable to query withdrawals: %w", err)
	}
	defer closeRows(rows)

	var withdrawals []models.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal rows: %w", err)
	}
	return withdrawals, nil
}

// GetReservedWithdrawalTotal returns what approved but unfinished withdrawals
// will debit once they are reconciled.
func (s *Service) GetReservedWithdrawalTotal(ctx context.Context, userId string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, queryGetReservedWithdrawals, userId)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to query reserved withdrawals: %w", err)
	}
	defer closeRows(rows)

	total := decimal.Zero
	for rows.Next() {
		var eurStr, feeStr string
		if err := rows.Scan(&eurStr, &feeStr); err != nil {
			return decimal.Zero, fmt.Errorf("unable to scan reserved withdrawal: %w", err)
		}
		eur, err := decimal.NewFromString(eurStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse eur_amount '%s': %w", eurStr, err)
		}
		fee, err := decimal.NewFromString(feeStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse fee_eur '%s': %w", feeStr, err)
		}
		total = total.Add(eur).Add(fee)
	}

	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating reserved withdrawal rows: %w", err)
	}
	return total, nil
}
