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

package listener

import (
	"context"
	"fmt"

	"casino-settlement-go/internal/chain"
	"casino-settlement-go/internal/metrics"
	"casino-settlement-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type outcome int

const (
	outcomeIdle outcome = iota
	outcomeDuplicate
	outcomeSwept
	outcomeSkipped
	outcomeFailed
)

// processAddress runs one deposit address through detection, sweep and
// crediting. Nothing is persisted before the sweep is finalized, so any
// failure leaves the address to be retried next cycle.
func (s *Scanner) processAddress(ctx context.Context, user models.User) outcome {
	address := user.DepositAddress

	balance, err := s.chain.GetBalance(ctx, address)
	if err != nil {
		s.fail(user, "balance query failed", err)
		return outcomeFailed
	}
	if balance <= s.settings.MinTriggerLamports {
		return outcomeIdle
	}

	inbound, older, err := s.findInbound(ctx, address)
	if err != nil {
		s.fail(user, "history query failed", err)
		return outcomeFailed
	}
	if inbound == nil {
		zap.L().Warn("Balance above threshold without a recognizable inbound transfer",
			zap.String("user_id", user.Id),
			zap.String("address", address),
			zap.Uint64("balance", balance))
		return outcomeIdle
	}

	depositKey, err := s.deriver.KeypairFor(user.Index)
	if err != nil {
		s.fail(user, "key derivation failed", err)
		return outcomeFailed
	}
	if depositKey.Address() != address {
		zap.L().Error("Deposit address does not match derived address, skipping",
			zap.String("user_id", user.Id),
			zap.Uint32("index", user.Index),
			zap.String("stored", address),
			zap.String("derived", depositKey.Address()))
		metrics.RecordDeposit("address_mismatch")
		return outcomeSkipped
	}

	seen, err := s.dbService.HasDeposit(ctx, inbound.Signature)
	if err != nil {
		s.fail(user, "duplicate check failed", err)
		return outcomeFailed
	}
	if seen {
		zap.L().Debug("Inbound transfer already credited",
			zap.String("user_id", user.Id),
			zap.String("signature", inbound.Signature))
		metrics.RecordDeposit("duplicate")
		return outcomeDuplicate
	}

	if missed := s.countUncredited(ctx, address, older); missed > 0 {
		zap.L().Warn("Older inbound transfers were never credited, only the newest is credited",
			zap.String("user_id", user.Id),
			zap.String("address", address),
			zap.String("signature", inbound.Signature),
			zap.Int("uncredited", missed))
	}

	if inbound.Lamports <= s.settings.FeeReserveLamports {
		zap.L().Debug("Inbound transfer does not cover the fee reserve",
			zap.String("signature", inbound.Signature),
			zap.Uint64("lamports", inbound.Lamports))
		return outcomeIdle
	}

	sweepSig, err := s.sweep(ctx, depositKey, balance)
	if err != nil {
		s.fail(user, "sweep failed", err)
		metrics.RecordDeposit("sweep_failed")
		return outcomeFailed
	}

	net := inbound.Lamports - s.settings.FeeReserveLamports
	result, err := s.apiService.ProcessDeposit(ctx, models.DepositParams{
		UserId:         user.Id,
		DepositAddress: address,
		SourceAddress:  inbound.SourceAddress,
		Lamports:       net,
		Amount:         decimal.New(int64(net), -9),
		TxHash:         inbound.Signature,
		SweepTxHash:    sweepSig,
		Details: fmt.Sprintf("inbound %s lamports, fee reserve %d, swept in %s",
			chain.LamportsToSOL(inbound.Lamports), s.settings.FeeReserveLamports, sweepSig),
	})
	if err != nil {
		s.fail(user, "deposit recording failed", err)
		return outcomeFailed
	}
	if result.Duplicate {
		return outcomeDuplicate
	}
	if !result.Success {
		s.fail(user, "deposit rejected", fmt.Errorf("%s", result.Error))
		return outcomeFailed
	}

	fmt.Printf("  %s✓ %s %s SOL -> %s %s%s\n",
		colorGreen, shorten(address), chain.LamportsToSOL(net), result.EurAmount.StringFixed(2), s.apiService.Fiat(), colorReset)
	return outcomeSwept
}

// findInbound returns the newest transfer that increased the balance of
// address, or nil, along with the signatures older than it. Treasury top-ups
// are not deposits.
func (s *Scanner) findInbound(ctx context.Context, address string) (*models.InboundTransfer, []chain.SignatureInfo, error) {
	signatures, err := s.chain.GetSignaturesForAddress(ctx, address, s.settings.SignatureLimit)
	if err != nil {
		return nil, nil, err
	}

	for i, info := range signatures {
		inbound, err := s.inboundFrom(ctx, address, info)
		if err != nil {
			return nil, nil, err
		}
		if inbound != nil {
			return inbound, signatures[i+1:], nil
		}
	}
	return nil, nil, nil
}

// countUncredited counts inbound transfers in older, newest first, up to the
// first one that was already credited. Lookup errors end the count early.
func (s *Scanner) countUncredited(ctx context.Context, address string, older []chain.SignatureInfo) int {
	count := 0
	for _, info := range older {
		inbound, err := s.inboundFrom(ctx, address, info)
		if err != nil {
			zap.L().Debug("Stopped looking for older inbound transfers", zap.String("address", address), zap.Error(err))
			return count
		}
		if inbound == nil {
			continue
		}
		seen, err := s.dbService.HasDeposit(ctx, inbound.Signature)
		if err != nil || seen {
			return count
		}
		count++
	}
	return count
}

func (s *Scanner) inboundFrom(ctx context.Context, address string, info chain.SignatureInfo) (*models.InboundTransfer, error) {
	if info.Failed {
		return nil, nil
	}
	tx, err := s.chain.GetTransaction(ctx, info.Signature)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", info.Signature, err)
	}
	if tx.Failed {
		return nil, nil
	}

	delta, ok := tx.Delta(address)
	if !ok || delta <= 0 {
		return nil, nil
	}
	source := tx.LargestSender()
	if source == s.treasury.Address() {
		return nil, nil
	}

	return &models.InboundTransfer{
		Signature:     info.Signature,
		Address:       address,
		SourceAddress: source,
		Lamports:      uint64(delta),
		BlockTime:     tx.BlockTime,
	}, nil
}

// sweep moves everything above rent exemption and the fee reserve to the
// treasury, with the treasury paying the network fee, and waits for
// finalization.
func (s *Scanner) sweep(ctx context.Context, from chain.Keypair, balance uint64) (string, error) {
	rent, err := s.chain.GetMinimumBalanceForRentExemption(ctx, 0)
	if err != nil {
		return "", fmt.Errorf("rent query failed: %w", err)
	}
	keep := rent + s.settings.FeeReserveLamports
	if balance <= keep {
		return "", fmt.Errorf("balance %d does not exceed rent and reserve %d", balance, keep)
	}
	amount := balance - keep

	sig, err := s.chain.SendTransfer(ctx, chain.TransferRequest{
		From:     from,
		To:       s.treasury.Address(),
		Lamports: amount,
		FeePayer: &s.treasury,
	})
	if err != nil {
		return "", fmt.Errorf("sweep submission failed: %w", err)
	}

	zap.L().Info("Sweep submitted, waiting for finalization",
		zap.String("from", from.Address()),
		zap.Uint64("lamports", amount),
		zap.String("signature", sig))

	if err := chain.WaitForFinalization(ctx, s.chain, sig, s.settings.FinalizationTimeout, s.settings.FinalizationPoll); err != nil {
		return "", err
	}
	return sig, nil
}

func (s *Scanner) fail(user models.User, msg string, err error) {
	fmt.Printf("  %s✗ %s: %s: %s%s\n", colorRed, shorten(user.DepositAddress), msg, err, colorReset)
	zap.L().Error("Deposit scan failed for address",
		zap.String("user_id", user.Id),
		zap.String("address", user.DepositAddress),
		zap.String("step", msg),
		zap.Error(err))
}

func shorten(s string) string {
	if len(s) > 12 {
		return s[:12] + "..."
	}
	return s
}
