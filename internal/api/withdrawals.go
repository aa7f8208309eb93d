/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"fmt"

	"casino-settlement-go/internal/models"

	"go.uber.org/zap"
)

// GetUserDeposits returns the newest deposits of a user
func (s *LedgerService) GetUserDeposits(ctx context.Context, userId string, limit, offset int) ([]models.Deposit, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	limit, offset = page(limit, offset)

	deposits, err := s.db.GetUserDeposits(ctx, userId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get deposits", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve deposits")
	}
	return deposits, nil
}

// GetUserWithdrawals returns the newest withdrawals of a user
func (s *LedgerService) GetUserWithdrawals(ctx context.Context, userId string, limit, offset int) ([]models.Withdrawal, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	limit, offset = page(limit, offset)

	withdrawals, err := s.db.GetUserWithdrawals(ctx, userId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get withdrawals", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve withdrawals")
	}
	return withdrawals, nil
}
