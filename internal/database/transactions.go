package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"casino-settlement-go/internal/balance"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceMutationParams describes one balance change applied inside a caller's transaction
type BalanceMutationParams struct {
	UserId          string
	TransactionType string
	Reference       string
	Adjustment      models.BalanceAdjustment
}

// ApplyAdjustment reads the user, applies the adjustment through the balance
// rules, writes it back guarded by the row version and records the subledger row.
// A zero adjustment returns the unchanged user and no transaction.
func (s *SubledgerService) ApplyAdjustment(ctx context.Context, tx *sql.Tx, params BalanceMutationParams) (*models.User, *models.Transaction, error) {
	user, err := getUserTx(ctx, tx, params.UserId)
	if err != nil {
		return nil, nil, err
	}
	if params.Adjustment.IsZero() {
		return user, nil, nil
	}

	zap.L().Info("Processing balance adjustment",
		zap.String("user_id", params.UserId),
		zap.String("type", params.TransactionType),
		zap.String("kind", string(params.Adjustment.Kind)),
		zap.String("amount", params.Adjustment.Amount.String()),
		zap.String("reference", params.Reference))

	fiatBefore, cryptoBefore, totalBefore := user.BalanceFiat, user.BalanceCrypto, user.Total()
	if err := balance.Apply(user, params.Adjustment); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, queryUpdateUserBalance,
		user.BalanceFiat.String(), user.BalanceCrypto.String(), now, user.Id, user.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}
	user.Version++
	user.UpdatedAt = now

	transaction := &models.Transaction{
		Id:              uuid.New().String(),
		UserId:          user.Id,
		TransactionType: params.TransactionType,
		FiatDelta:       user.BalanceFiat.Sub(fiatBefore),
		CryptoDelta:     user.BalanceCrypto.Sub(cryptoBefore),
		BalanceBefore:   totalBefore,
		BalanceAfter:    user.Total(),
		Reference:       params.Reference,
		CreatedAt:       now,
	}

	_, err = tx.ExecContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.UserId, transaction.TransactionType,
		transaction.FiatDelta.String(), transaction.CryptoDelta.String(),
		transaction.BalanceBefore.String(), transaction.BalanceAfter.String(),
		transaction.Reference, transaction.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	if err := s.addJournalEntries(ctx, tx, transaction); err != nil {
		return nil, nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	zap.L().Info("Balance adjustment recorded",
		zap.String("transaction_id", transaction.Id),
		zap.String("user_id", user.Id),
		zap.String("old_balance", totalBefore.String()),
		zap.String("new_balance", transaction.BalanceAfter.String()))

	return user, transaction, nil
}

// counterAccount is the house-side account a user balance change is booked against.
func counterAccount(transactionType string) (string, string) {
	switch transactionType {
	case TransactionGameSettlement:
		return "house_pnl", "games"
	default:
		return "treasury_asset", "sol_treasury"
	}
}

// addJournalEntries creates double-entry bookkeeping entries. The user balance
// is a liability of the house: an increase is a credit to it and a debit to the
// counter account, a decrease the reverse.
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error {
	delta := transaction.BalanceAfter.Sub(transaction.BalanceBefore)
	if delta.IsZero() {
		return nil
	}

	counterType, counterId := counterAccount(transaction.TransactionType)
	userAccount := fmt.Sprintf("user_balance_%s", transaction.UserId)

	type entry struct {
		accountType  string
		accountId    string
		debitAmount  decimal.Decimal
		creditAmount decimal.Decimal
	}

	var entries []entry
	if delta.IsPositive() {
		entries = []entry{
			{"user_liability", userAccount, decimal.Zero, delta},
			{counterType, counterId, delta, decimal.Zero},
		}
	} else {
		entries = []entry{
			{"user_liability", userAccount, delta.Neg(), decimal.Zero},
			{counterType, counterId, decimal.Zero, delta.Neg()},
		}
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), transaction.Id, e.accountType, e.accountId,
			e.debitAmount.String(), e.creditAmount.String())
		if err != nil {
			return err
		}
	}

	return nil
}

// GetTransactionHistory returns paginated subledger rows for a user
func (s *SubledgerService) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("user_id", userId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer closeRows(rows)

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var fiatStr, cryptoStr, beforeStr, afterStr string
		err := rows.Scan(&t.Id, &t.UserId, &t.TransactionType, &fiatStr, &cryptoStr,
			&beforeStr, &afterStr, &t.Reference, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if t.FiatDelta, err = decimal.NewFromString(fiatStr); err != nil {
			return nil, fmt.Errorf("failed to parse fiat delta '%s': %w", fiatStr, err)
		}
		if t.CryptoDelta, err = decimal.NewFromString(cryptoStr); err != nil {
			return nil, fmt.Errorf("failed to parse crypto delta '%s': %w", cryptoStr, err)
		}
		if t.BalanceBefore, err = decimal.NewFromString(beforeStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance before '%s': %w", beforeStr, err)
		}
		if t.BalanceAfter, err = decimal.NewFromString(afterStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance after '%s': %w", afterStr, err)
		}

		transactions = append(transactions, t)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}

func (s *Service) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error) {
	return s.subledger.GetTransactionHistory(ctx, userId, limit, offset)
}

func (s *Service) AddAuditLog(ctx context.Context, userId, action, details string) error {
	_, err := s.db.ExecContext(ctx, queryInsertAuditLog, uuid.New().String(), userId, action, details, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func addAuditLogTx(ctx context.Context, tx *sql.Tx, userId, action, details string) error {
	_, err := tx.ExecContext(ctx, queryInsertAuditLog, uuid.New().String(), userId, action, details, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
