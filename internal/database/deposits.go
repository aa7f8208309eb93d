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

func scanDeposit(row rowScanner) (*models.Deposit, error) {
	var d models.Deposit
	var eurStr, amountStr, priceStr string
	err := row.Scan(&d.Id, &d.UserId, &eurStr, &d.Network, &d.DepositAddress, &d.SourceAddress,
		&d.Asset, &amountStr, &d.Lamports, &d.TxHash, &d.SweepTxHash, &priceStr, &d.Status,
		&d.Details, &d.CreatedAt)
	if err != nil {
		return nil, err
	}

	if d.EurAmount, err = decimal.NewFromString(eurStr); err != nil {
		return nil, fmt.Errorf("failed to parse eur_amount '%s': %w", eurStr, err)
	}
	if d.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	if d.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("failed to parse price '%s': %w", priceStr, err)
	}
	return &d, nil
}

func (s *Service) queryDeposits(ctx context.Context, query string, args ...any) ([]models.Deposit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query deposits: %w", err)
	}
	defer closeRows(rows)

	var deposits []models.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan deposit: %w", err)
		}
		deposits = append(deposits, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit rows: %w", err)
	}
	return deposits, nil
}

// HasDeposit reports whether a deposit with the given on-chain hash was already recorded
func (s *Service) HasDeposit(ctx context.Context, txHash string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, queryCheckDuplicateDeposit, txHash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate deposit: %w", err)
	}
	return true, nil
}

// RecordDeposit writes the deposit row and, when params.Credit is set, credits
// the crypto balance in the same transaction. The tx hash is unique, so a
// replayed transfer fails with store.ErrDuplicateTransaction and credits nothing.
func (s *Service) RecordDeposit(ctx context.Context, params store.RecordDepositParams) (*models.Deposit, *models.User, error) {
	var deposit *models.Deposit
	var user *models.User

	err := withModificationRetry(ctx, "record_deposit", func() error {
		var err error
		deposit, user, err = s.recordDepositOnce(ctx, params)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("Deposit recorded",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", deposit.UserId),
		zap.String("tx_hash", deposit.TxHash),
		zap.String("amount", deposit.Amount.String()),
		zap.String("eur_amount", deposit.EurAmount.String()),
		zap.String("status", string(deposit.Status)))

	return deposit, user, nil
}

func (s *Service) recordDepositOnce(ctx context.Context, params store.RecordDepositParams) (*models.Deposit, *models.User, error) {
	p := params.Deposit

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	var existingId string
	err = tx.QueryRowContext(ctx, queryCheckDuplicateDeposit, p.TxHash).Scan(&existingId)
	if err == nil {
		return nil, nil, fmt.Errorf("%w: %s", store.ErrDuplicateTransaction, p.TxHash)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("failed to check duplicate deposit: %w", err)
	}

	status := models.DepositPendingPrice
	if params.Credit {
		status = models.DepositCredited
	}

	deposit := &models.Deposit{
		Id:             uuid.New().String(),
		UserId:         p.UserId,
		EurAmount:      params.EurAmount,
		Network:        p.Network,
		DepositAddress: p.DepositAddress,
		SourceAddress:  p.SourceAddress,
		Asset:          p.Asset,
		Amount:         p.Amount,
		Lamports:       p.Lamports,
		TxHash:         p.TxHash,
		SweepTxHash:    p.SweepTxHash,
		Price:          p.Price,
		Status:         status,
		Details:        p.Details,
		CreatedAt:      time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, queryInsertDeposit,
		deposit.Id, deposit.UserId, deposit.EurAmount.String(), deposit.Network, deposit.DepositAddress,
		deposit.SourceAddress, deposit.Asset, deposit.Amount.String(), deposit.Lamports, deposit.TxHash,
		deposit.SweepTxHash, deposit.Price.String(), string(deposit.Status), deposit.Details, deposit.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, fmt.Errorf("%w: %s", store.ErrDuplicateTransaction, p.TxHash)
		}
		return nil, nil, fmt.Errorf("failed to insert deposit: %w", err)
	}

	adjustment := models.BalanceAdjustment{}
	if params.Credit {
		adjustment = models.BalanceAdjustment{Kind: models.AdjustCreditCrypto, Amount: params.EurAmount}
	}
	user, _, err := s.subledger.ApplyAdjustment(ctx, tx, BalanceMutationParams{
		UserId:          p.UserId,
		TransactionType: TransactionDeposit,
		Reference:       p.TxHash,
		Adjustment:      adjustment,
	})
	if err != nil {
		return nil, nil, err
	}

	if params.AuditLog != "" {
		if err := addAuditLogTx(ctx, tx, p.UserId, "deposit", params.AuditLog); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit deposit: %w", err)
	}

	return deposit, user, nil
}

func (s *Service) GetPendingDeposits(ctx context.Context) ([]models.Deposit, error) {
	return s.queryDeposits(ctx, queryGetPendingDeposits)
}

// CompletePendingDeposit converts a deposit stored without a price and credits
// it. Only deposits still pending can be completed.
func (s *Service) CompletePendingDeposit(ctx context.Context, depositId string, price, eurAmount decimal.Decimal) (*models.Deposit, *models.User, error) {
	var deposit *models.Deposit
	var user *models.User

	err := withModificationRetry(ctx, "complete_pending_deposit", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer rollback(tx)

		deposit, err = scanDeposit(tx.QueryRowContext(ctx, queryGetDeposit, depositId))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", store.ErrDepositNotFound, depositId)
			}
			return fmt.Errorf("unable to query deposit: %w", err)
		}
		if deposit.Status != models.DepositPendingPrice {
			return fmt.Errorf("%w: %s", store.ErrDepositNotPending, depositId)
		}

		result, err := tx.ExecContext(ctx, queryMarkDepositCredited, price.String(), eurAmount.String(), depositId)
		if err != nil {
			return fmt.Errorf("failed to mark deposit credited: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: %s", store.ErrDepositNotPending, depositId)
		}

		user, _, err = s.subledger.ApplyAdjustment(ctx, tx, BalanceMutationParams{
			UserId:          deposit.UserId,
			TransactionType: TransactionDeposit,
			Reference:       deposit.TxHash,
			Adjustment:      models.BalanceAdjustment{Kind: models.AdjustCreditCrypto, Amount: eurAmount},
		})
		if err != nil {
			return err
		}

		details := fmt.Sprintf("deposit %s converted at %s: %s %s = %s EUR",
			deposit.TxHash, price.String(), deposit.Amount.String(), deposit.Asset, eurAmount.String())
		if err := addAuditLogTx(ctx, tx, deposit.UserId, "deposit_converted", details); err != nil {
			return err
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, nil, err
	}

	deposit.Status = models.DepositCredited
	deposit.Price = price
	deposit.EurAmount = eurAmount

	zap.L().Info("Pending deposit credited",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", deposit.UserId),
		zap.String("eur_amount", eurAmount.String()))

	return deposit, user, nil
}

func (s *Service) GetUserDeposits(ctx context.Context, userId string, limit, offset int) ([]models.Deposit, error) {
	return s.queryDeposits(ctx, queryGetUserDeposits, userId, limit, offset)
}
