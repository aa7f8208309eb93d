package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"

	"go.uber.org/zap"
)

// GetUsersWithDepositAddress returns every active user the scanner should poll.
func (s *Service) GetUsersWithDepositAddress(ctx context.Context) ([]models.User, error) {
	users, err := s.queryUsers(ctx, queryGetUsersWithDepositAddress)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("Retrieved users with deposit addresses", zap.Int("count", len(users)))
	return users, nil
}

// AssignDepositAddress stores the derived address once. Assigning the same
// address again is a no-op; a different address is rejected.
func (s *Service) AssignDepositAddress(ctx context.Context, userId, address string) error {
	if address == "" {
		return fmt.Errorf("deposit address cannot be empty")
	}

	result, err := s.db.ExecContext(ctx, queryAssignDepositAddress, address, time.Now().UTC(), userId)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: address %s belongs to another user", store.ErrAddressAlreadyAssigned, address)
		}
		return fmt.Errorf("unable to assign deposit address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		zap.L().Info("Deposit address assigned",
			zap.String("user_id", userId),
			zap.String("address", address))
		return nil
	}

	var existing string
	err = s.db.QueryRowContext(ctx, queryGetDepositAddress, userId).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	if err != nil {
		return fmt.Errorf("unable to read deposit address: %w", err)
	}
	if existing != address {
		return fmt.Errorf("%w: user %s already has %s", store.ErrAddressAlreadyAssigned, userId, existing)
	}
	return nil
}
