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
	"errors"
	"fmt"
	"time"

	"casino-settlement-go/internal/events"
	"casino-settlement-go/internal/metrics"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/price"
	"casino-settlement-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessDeposit converts a swept inbound transfer to its fiat equivalent and
// records it with its crypto credit. Without any quote the deposit is kept
// as pending_price and credited later by ConvertPendingDeposits.
func (s *LedgerService) ProcessDeposit(ctx context.Context, params models.DepositParams) (*models.DepositResult, error) {
	zap.L().Info("Processing deposit",
		zap.String("user_id", params.UserId),
		zap.String("address", params.DepositAddress),
		zap.String("amount", params.Amount.String()),
		zap.String("tx_hash", params.TxHash))

	if params.UserId == "" || params.TxHash == "" || params.Amount.LessThanOrEqual(decimal.Zero) {
		zap.L().Error("Invalid deposit parameters",
			zap.String("user_id", params.UserId),
			zap.String("amount", params.Amount.String()),
			zap.String("tx_hash", params.TxHash))
		return &models.DepositResult{
			Success: false,
			Error:   "invalid deposit parameters",
		}, nil
	}
	if params.Network == "" {
		params.Network = s.network
	}
	if params.Asset == "" {
		params.Asset = s.asset
	}

	quote, live, err := price.Resolve(ctx, s.oracle, params.Asset, s.fiat)
	credit := err == nil
	eurAmount := decimal.Zero
	if credit {
		params.Price = quote
		eurAmount = params.Amount.Mul(quote)
		if !live {
			zap.L().Warn("Using last known price for deposit",
				zap.String("tx_hash", params.TxHash),
				zap.String("price", quote.String()))
		}
	} else {
		params.Price = decimal.Zero
		zap.L().Warn("No price available, deposit kept pending conversion",
			zap.String("tx_hash", params.TxHash),
			zap.Error(err))
	}

	auditLog := fmt.Sprintf("deposit %s %s from %s to %s, sweep %s, price %s %s, credited %s %s",
		params.Amount.String(), params.Asset, params.SourceAddress, params.DepositAddress,
		params.SweepTxHash, params.Price.String(), s.fiat, eurAmount.String(), s.fiat)

	deposit, user, err := s.db.RecordDeposit(ctx, store.RecordDepositParams{
		Deposit:   params,
		EurAmount: eurAmount,
		Credit:    credit,
		AuditLog:  auditLog,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			zap.L().Info("Duplicate deposit detected, already credited",
				zap.String("tx_hash", params.TxHash))
			metrics.RecordDeposit("duplicate")
			return &models.DepositResult{
				Success:   false,
				Duplicate: true,
				Error:     "deposit already recorded",
			}, nil
		}
		zap.L().Error("Deposit recording failed",
			zap.String("tx_hash", params.TxHash),
			zap.Error(err))
		metrics.RecordDeposit("failed")
		return &models.DepositResult{
			Success: false,
			Error:   "deposit could not be recorded",
		}, err
	}

	if credit {
		metrics.RecordDeposit("credited")
		metrics.RecordDepositVolume(s.fiat, eurAmount.InexactFloat64())
		s.publishCredited(ctx, deposit)
	} else {
		metrics.RecordDeposit("pending_price")
	}

	zap.L().Info("Deposit processed successfully",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", user.Id),
		zap.String("eur_amount", eurAmount.String()),
		zap.String("new_balance", user.Total().String()))

	return &models.DepositResult{
		Success:    true,
		DepositId:  deposit.Id,
		UserId:     user.Id,
		Asset:      deposit.Asset,
		Amount:     deposit.Amount,
		EurAmount:  eurAmount,
		Pending:    !credit,
		NewBalance: user.Total(),
	}, nil
}

// ConvertPendingDeposits credits deposits recorded without a price once a
// quote is available again. It returns how many were credited.
func (s *LedgerService) ConvertPendingDeposits(ctx context.Context) (int, error) {
	pending, err := s.db.GetPendingDeposits(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending deposits: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	converted := 0
	for _, d := range pending {
		quote, _, err := price.Resolve(ctx, s.oracle, d.Asset, s.fiat)
		if err != nil {
			zap.L().Debug("Still no price for pending deposits", zap.Int("pending", len(pending)))
			return converted, nil
		}

		deposit, _, err := s.db.CompletePendingDeposit(ctx, d.Id, quote, d.Amount.Mul(quote))
		if err != nil {
			if errors.Is(err, store.ErrDepositNotPending) {
				continue
			}
			zap.L().Error("Failed to convert pending deposit",
				zap.String("deposit_id", d.Id),
				zap.Error(err))
			continue
		}

		converted++
		metrics.RecordDeposit("credited")
		metrics.RecordDepositVolume(s.fiat, deposit.EurAmount.InexactFloat64())
		s.publishCredited(ctx, deposit)
	}
	return converted, nil
}

func (s *LedgerService) publishCredited(ctx context.Context, d *models.Deposit) {
	event := events.DepositCredited{
		DepositId:  d.Id,
		UserId:     d.UserId,
		TxHash:     d.TxHash,
		Asset:      d.Asset,
		Amount:     d.Amount,
		EurAmount:  d.EurAmount,
		CreditedAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, events.RoutingDepositCredited, event); err != nil {
		zap.L().Warn("Failed to publish deposit event",
			zap.String("deposit_id", d.Id),
			zap.Error(err))
	}
}

// GetDepositAddress returns the user's deposit address, deriving and
// assigning it on first request. Initialization of the on-chain account is
// queued and never delays the answer.
func (s *LedgerService) GetDepositAddress(ctx context.Context, userId string) (*models.DepositAddressResult, error) {
	user, err := s.db.GetUserById(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return &models.DepositAddressResult{Success: false, Error: "user not found"}, nil
		}
		return &models.DepositAddressResult{Success: false, Error: "failed to load user"}, err
	}

	result := &models.DepositAddressResult{
		Success: true,
		UserId:  user.Id,
		Network: s.network,
		Asset:   s.asset,
		Address: user.DepositAddress,
	}
	if user.DepositAddress != "" {
		return result, nil
	}

	if s.deriver == nil {
		return &models.DepositAddressResult{Success: false, Error: "deposit addresses are not configured"}, nil
	}

	address, err := s.deriver.AddressFor(user.Index)
	if err != nil {
		zap.L().Error("Failed to derive deposit address",
			zap.String("user_id", user.Id),
			zap.Uint32("index", user.Index),
			zap.Error(err))
		return &models.DepositAddressResult{Success: false, Error: "failed to derive deposit address"}, err
	}

	if err := s.db.AssignDepositAddress(ctx, user.Id, address); err != nil {
		zap.L().Error("Failed to assign deposit address",
			zap.String("user_id", user.Id),
			zap.String("address", address),
			zap.Error(err))
		return &models.DepositAddressResult{Success: false, Error: "failed to assign deposit address"}, err
	}

	if s.initializer != nil {
		s.initializer.Submit(address)
	}

	result.Address = address
	return result, nil
}
