package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casino-settlement-go/internal/chain"
	"casino-settlement-go/internal/metrics"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/price"
	"casino-settlement-go/internal/store"
	"casino-settlement-go/internal/userlock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const genericFailure = "withdrawal could not be processed, please try again later"

// Config contains the collaborators of Processor
type Config struct {
	Chain    chain.Client
	Store    store.Store
	Oracle   price.Oracle
	Treasury chain.Keypair
	Locks    *userlock.Locker
	Settings models.WithdrawalConfig
	Asset    string
	Fiat     string
}

// Processor pays withdrawals from the treasury. The user is debited only
// after the transfer is finalized on chain.
type Processor struct {
	chain    chain.Client
	store    store.Store
	oracle   price.Oracle
	treasury chain.Keypair
	locks    *userlock.Locker
	settings models.WithdrawalConfig
	asset    string
	fiat     string
}

func NewProcessor(cfg Config) *Processor {
	locks := cfg.Locks
	if locks == nil {
		locks = userlock.New()
	}
	settings := cfg.Settings
	if settings.FinalizationTimeout <= 0 {
		settings.FinalizationTimeout = 60 * time.Second
	}
	if settings.FinalizationPoll <= 0 {
		settings.FinalizationPoll = 2 * time.Second
	}
	asset, fiat := cfg.Asset, cfg.Fiat
	if asset == "" {
		asset = "SOL"
	}
	if fiat == "" {
		fiat = "EUR"
	}

	return &Processor{
		chain:    cfg.Chain,
		store:    cfg.Store,
		oracle:   cfg.Oracle,
		treasury: cfg.Treasury,
		locks:    locks,
		settings: settings,
		asset:    asset,
		fiat:     fiat,
	}
}

// Withdraw sends amount (in SOL) to targetAddress. The user pays the fiat
// value of the amount plus a fixed network fee equivalent, from the crypto
// balance only.
func (p *Processor) Withdraw(ctx context.Context, userId, targetAddress string, amount decimal.Decimal) (*models.WithdrawalResult, error) {
	unlock := p.locks.Lock(userId)
	defer unlock()

	if !amount.IsPositive() {
		return reject("amount must be positive"), nil
	}
	lamportsDec := amount.Shift(9)
	if !lamportsDec.Equal(lamportsDec.Truncate(0)) {
		return reject("amount has more than 9 decimal places"), nil
	}
	lamports := uint64(lamportsDec.IntPart())
	if err := p.chain.ValidateAddress(targetAddress); err != nil {
		return reject("invalid target address"), nil
	}

	user, err := p.store.GetUserById(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return reject("user not found"), nil
		}
		return reject(genericFailure), err
	}

	quote, err := p.oracle.SpotPrice(ctx, p.asset, p.fiat)
	if err != nil {
		zap.L().Warn("Withdrawal refused, no live price",
			zap.String("user_id", userId),
			zap.Error(err))
		metrics.RecordWithdrawal("no_price")
		return reject("price quote unavailable"), err
	}

	eurAmount := amount.Mul(quote)
	feeEur := decimal.New(int64(p.settings.FeeReserveLamports), -9).Mul(quote)
	total := eurAmount.Add(feeEur)

	w := &models.Withdrawal{
		UserId:        userId,
		TargetAddress: targetAddress,
		Asset:         p.asset,
		Amount:        amount,
		EurAmount:     eurAmount,
		FeeEur:        feeEur,
		Status:        models.WithdrawalPending,
	}
	if err := p.store.CreateWithdrawal(ctx, w); err != nil {
		return reject(genericFailure), err
	}

	result := &models.WithdrawalResult{
		WithdrawalId: w.Id,
		Amount:       amount,
		EurAmount:    eurAmount,
		FeeEur:       feeEur,
		TotalDebit:   total,
	}

	// approved withdrawals still awaiting finalization hold their debit back
	reserved, err := p.store.GetReservedWithdrawalTotal(ctx, userId)
	if err != nil {
		p.updateStatus(ctx, w.Id, models.WithdrawalRejected, "", "reserved balance unavailable")
		result.Error = genericFailure
		result.Status = string(models.WithdrawalRejected)
		return result, err
	}
	available := user.BalanceCrypto.Sub(reserved)
	if available.LessThan(total) {
		return p.rejectRecord(ctx, result, fmt.Sprintf("insufficient crypto balance: need %s %s, have %s %s",
			total.String(), p.fiat, available.String(), p.fiat))
	}

	treasuryBalance, err := p.chain.GetBalance(ctx, p.treasury.Address())
	if err != nil {
		p.updateStatus(ctx, w.Id, models.WithdrawalRejected, "", "treasury balance unavailable")
		result.Error = genericFailure
		result.Status = string(models.WithdrawalRejected)
		return result, fmt.Errorf("failed to read treasury balance: %w", err)
	}
	if treasuryBalance < lamports+p.settings.FeeReserveLamports {
		zap.L().Error("Treasury cannot cover withdrawal",
			zap.String("withdrawal_id", w.Id),
			zap.Uint64("treasury_lamports", treasuryBalance),
			zap.Uint64("requested_lamports", lamports))
		return p.rejectRecord(ctx, result, "withdrawals are temporarily unavailable")
	}

	if err := p.store.UpdateWithdrawalStatus(ctx, w.Id, models.WithdrawalApproved, "", ""); err != nil {
		return reject(genericFailure), err
	}

	sig, err := p.chain.SendTransfer(ctx, chain.TransferRequest{
		From:     p.treasury,
		To:       targetAddress,
		Lamports: lamports,
	})
	if err != nil {
		// The submission outcome is unknown, so the record stays approved.
		p.updateStatus(context.WithoutCancel(ctx), w.Id, models.WithdrawalApproved, "", "submission failed: "+err.Error())
		metrics.RecordWithdrawal("submit_failed")
		result.Error = genericFailure
		result.Status = string(models.WithdrawalApproved)
		return result, fmt.Errorf("withdrawal transfer failed: %w", err)
	}
	result.TxHash = sig

	// Once submitted the transfer is out of the caller's hands: a dropped
	// request must not cut the wait short or skip the debit.
	ctx = context.WithoutCancel(ctx)
	p.updateStatus(ctx, w.Id, models.WithdrawalApproved, sig, "")

	err = chain.WaitForFinalization(ctx, p.chain, sig, p.settings.FinalizationTimeout, p.settings.FinalizationPoll)
	if err != nil {
		if errors.Is(err, chain.ErrTransactionFailed) {
			p.updateStatus(ctx, w.Id, models.WithdrawalRejected, sig, "transaction failed on chain")
			metrics.RecordWithdrawal(string(models.WithdrawalRejected))
			result.Status = string(models.WithdrawalRejected)
			result.Error = "withdrawal transaction failed"
			return result, err
		}

		zap.L().Error("Withdrawal not finalized, needs reconciliation",
			zap.String("withdrawal_id", w.Id),
			zap.String("user_id", userId),
			zap.String("tx_hash", sig),
			zap.String("request_id", models.RequestIdFromContext(ctx)),
			zap.Error(err))
		metrics.RecordWithdrawal("unconfirmed")
		result.Status = string(models.WithdrawalApproved)
		result.Error = "withdrawal submitted but not yet confirmed"
		return result, err
	}

	_, updated, err := p.store.CompleteWithdrawal(ctx, store.CompleteWithdrawalParams{
		WithdrawalId: w.Id,
		TxHash:       sig,
		Debit:        total,
	})
	if err != nil {
		zap.L().Error("Withdrawal finalized but debit failed, needs reconciliation",
			zap.String("withdrawal_id", w.Id),
			zap.String("user_id", userId),
			zap.String("tx_hash", sig),
			zap.String("debit", total.String()),
			zap.Error(err))
		result.Status = string(models.WithdrawalApproved)
		result.Error = genericFailure
		return result, err
	}

	metrics.RecordWithdrawal(string(models.WithdrawalSent))
	zap.L().Info("Withdrawal sent",
		zap.String("withdrawal_id", w.Id),
		zap.String("user_id", userId),
		zap.String("amount", amount.String()),
		zap.String("debit", total.String()),
		zap.String("tx_hash", sig),
		zap.String("request_id", models.RequestIdFromContext(ctx)))

	balance := models.NewUserBalance(updated)
	result.Success = true
	result.Status = string(models.WithdrawalSent)
	result.NewBalance = &balance
	return result, nil
}

// updateStatus records a status change whose failure cannot change the
// outcome returned to the caller, so it is logged for reconciliation.
func (p *Processor) updateStatus(ctx context.Context, withdrawalId string, status models.WithdrawalStatus, txHash, reason string) {
	if err := p.store.UpdateWithdrawalStatus(ctx, withdrawalId, status, txHash, reason); err != nil {
		zap.L().Error("Failed to update withdrawal status",
			zap.String("withdrawal_id", withdrawalId),
			zap.String("status", string(status)),
			zap.String("tx_hash", txHash),
			zap.String("request_id", models.RequestIdFromContext(ctx)),
			zap.Error(err))
	}
}

func reject(reason string) *models.WithdrawalResult {
	return &models.WithdrawalResult{Success: false, Error: reason}
}

func (p *Processor) rejectRecord(ctx context.Context, result *models.WithdrawalResult, reason string) (*models.WithdrawalResult, error) {
	if err := p.store.UpdateWithdrawalStatus(ctx, result.WithdrawalId, models.WithdrawalRejected, "", reason); err != nil {
		return reject(genericFailure), err
	}
	metrics.RecordWithdrawal(string(models.WithdrawalRejected))
	zap.L().Info("Withdrawal rejected",
		zap.String("withdrawal_id", result.WithdrawalId),
		zap.String("reason", reason))

	result.Status = string(models.WithdrawalRejected)
	result.Error = reason
	return result, nil
}
