package withdrawal

import (
	"context"
	"errors"
	"testing"
	"time"

	"casino-settlement-go/internal/chain"
	"casino-settlement-go/internal/chain/chaintest"
	"casino-settlement-go/internal/database"
	"casino-settlement-go/internal/database/dbtest"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/price"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubOracle struct {
	price decimal.Decimal
}

func (o stubOracle) SpotPrice(context.Context, string, string) (decimal.Decimal, error) {
	if o.price.IsZero() {
		return decimal.Zero, price.ErrPriceUnavailable
	}
	return o.price, nil
}

func (o stubOracle) LastKnownPrice(string, string) (decimal.Decimal, bool) {
	return decimal.Zero, false
}

type fixture struct {
	db        *database.Service
	chain     *chaintest.Fake
	treasury  chain.Keypair
	processor *Processor
}

func newFixture(t *testing.T, quote int64) *fixture {
	t.Helper()
	db := dbtest.New(t)
	fake := chaintest.New()

	treasury, err := chain.KeypairFromBase58(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	fake.SetBalance(treasury.Address(), 10*chain.LamportsPerSOL)

	p := NewProcessor(Config{
		Chain:    fake,
		Store:    db,
		Oracle:   stubOracle{price: decimal.NewFromInt(quote)},
		Treasury: treasury,
		Settings: models.WithdrawalConfig{
			FeeReserveLamports:  10_000,
			FinalizationTimeout: time.Second,
			FinalizationPoll:    5 * time.Millisecond,
		},
	})
	return &fixture{db: db, chain: fake, treasury: treasury, processor: p}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWithdrawDebitsAmountPlusFeeAfterFinalization(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	user := dbtest.User(t, f.db, "alice@example.com", dec("50"), dec("200"))
	target := chaintest.NewAddress()

	res, err := f.processor.Withdraw(ctx, user.Id, target, dec("1"))
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	assert.True(t, res.EurAmount.Equal(dec("100")))
	assert.True(t, res.FeeEur.Equal(dec("0.001")))
	assert.True(t, res.TotalDebit.Equal(dec("100.001")))
	assert.Equal(t, string(models.WithdrawalSent), res.Status)
	assert.True(t, res.NewBalance.BalanceCrypto.Equal(dec("99.999")))
	assert.True(t, res.NewBalance.BalanceFiat.Equal(dec("50")))

	assert.Equal(t, uint64(chain.LamportsPerSOL), f.chain.Balance(target))
	transfers := f.chain.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, f.treasury.Address(), transfers[0].From)
	assert.Equal(t, f.treasury.Address(), transfers[0].FeePayer)

	w, err := f.db.GetWithdrawal(ctx, res.WithdrawalId)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalSent, w.Status)
	assert.Equal(t, res.TxHash, w.TxHash)

	require.NoError(t, f.db.ReconcileUserBalance(ctx, user.Id))
}

func TestWithdrawNeedsCryptoNotFiat(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()
	user := dbtest.User(t, f.db, "bob@example.com", dec("1000"), dec("100"))

	res, err := f.processor.Withdraw(ctx, user.Id, chaintest.NewAddress(), dec("1"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "insufficient crypto balance")
	assert.Equal(t, string(models.WithdrawalRejected), res.Status)
	assert.Empty(t, f.chain.Transfers())

	w, err := f.db.GetWithdrawal(ctx, res.WithdrawalId)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, w.Status)
}

func TestWithdrawTimeoutLeavesApprovedWithoutDebit(t *testing.T) {
	f := newFixture(t, 100)
	f.processor.settings.FinalizationTimeout = 30 * time.Millisecond
	f.chain.Finalize = false
	ctx := context.Background()
	user := dbtest.User(t, f.db, "carol@example.com", dec("0"), dec("200"))

	res, err := f.processor.Withdraw(ctx, user.Id, chaintest.NewAddress(), dec("1"))
	assert.True(t, errors.Is(err, chain.ErrFinalizationTimeout), "got %v", err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.TxHash)

	w, err := f.db.GetWithdrawal(ctx, res.WithdrawalId)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalApproved, w.Status)
	assert.Equal(t, res.TxHash, w.TxHash)

	after, err := f.db.GetUserById(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, after.BalanceCrypto.Equal(dec("200")))
}

func TestWithdrawFailsFastWithoutPrice(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	user := dbtest.User(t, f.db, "dave@example.com", dec("0"), dec("200"))

	res, err := f.processor.Withdraw(ctx, user.Id, chaintest.NewAddress(), dec("1"))
	assert.ErrorIs(t, err, price.ErrPriceUnavailable)
	assert.False(t, res.Success)

	withdrawals, err := f.db.GetUserWithdrawals(ctx, user.Id, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, withdrawals)
}

func TestWithdrawValidation(t *testing.T) {
	f := newFixture(t, 100)
	user := dbtest.User(t, f.db, "erin@example.com", dec("0"), dec("200"))

	tests := []struct {
		name   string
		target string
		amount string
		want   string
	}{
		{"zero amount", chaintest.NewAddress(), "0", "amount must be positive"},
		{"too precise", chaintest.NewAddress(), "0.0000000001", "amount has more than 9 decimal places"},
		{"bad address", "not-an-address", "1", "invalid target address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.processor.Withdraw(context.Background(), user.Id, tt.target, dec(tt.amount))
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Error)
		})
	}
}

func TestWithdrawTreasuryShortfallIsRejected(t *testing.T) {
	f := newFixture(t, 100)
	f.chain.SetBalance(f.treasury.Address(), chain.LamportsPerSOL)
	user := dbtest.User(t, f.db, "frank@example.com", dec("0"), dec("200"))

	res, err := f.processor.Withdraw(context.Background(), user.Id, chaintest.NewAddress(), dec("1"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, string(models.WithdrawalRejected), res.Status)
	assert.Empty(t, f.chain.Transfers())
}

func TestUnfinalizedWithdrawalReservesFunds(t *testing.T) {
	f := newFixture(t, 100)
	f.processor.settings.FinalizationTimeout = 30 * time.Millisecond
	f.chain.Finalize = false
	ctx := context.Background()
	user := dbtest.User(t, f.db, "erin@example.com", dec("0"), dec("150"))

	first, err := f.processor.Withdraw(ctx, user.Id, chaintest.NewAddress(), dec("1"))
	require.ErrorIs(t, err, chain.ErrFinalizationTimeout)
	assert.Equal(t, string(models.WithdrawalApproved), first.Status)

	reserved, err := f.db.GetReservedWithdrawalTotal(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, reserved.Equal(dec("100.001")), "reserved %s", reserved)

	f.chain.Finalize = true
	second, err := f.processor.Withdraw(ctx, user.Id, chaintest.NewAddress(), dec("1"))
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Contains(t, second.Error, "insufficient crypto balance")
	assert.Equal(t, string(models.WithdrawalRejected), second.Status)
	assert.Len(t, f.chain.Transfers(), 1)

	after, err := f.db.GetUserById(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, after.BalanceCrypto.Equal(dec("150")))
}

// cancelOnSubmit drops the caller's context as soon as the transfer is out.
type cancelOnSubmit struct {
	*chaintest.Fake
	cancel context.CancelFunc
}

func (c cancelOnSubmit) SendTransfer(ctx context.Context, req chain.TransferRequest) (string, error) {
	sig, err := c.Fake.SendTransfer(ctx, req)
	c.cancel()
	return sig, err
}

func TestWithdrawCompletesAfterCallerCancels(t *testing.T) {
	f := newFixture(t, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.processor.chain = cancelOnSubmit{Fake: f.chain, cancel: cancel}
	user := dbtest.User(t, f.db, "frank@example.com", dec("0"), dec("200"))

	res, err := f.processor.Withdraw(ctx, user.Id, chaintest.NewAddress(), dec("1"))
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	require.Error(t, ctx.Err())

	after, err := f.db.GetUserById(context.Background(), user.Id)
	require.NoError(t, err)
	assert.True(t, after.BalanceCrypto.Equal(dec("99.999")))
}

// failingStatusStore rejects status updates that record a signature.
type failingStatusStore struct {
	*database.Service
}

func (s failingStatusStore) UpdateWithdrawalStatus(ctx context.Context, id string, status models.WithdrawalStatus, txHash, reason string) error {
	if txHash == "" {
		return s.Service.UpdateWithdrawalStatus(ctx, id, status, txHash, reason)
	}
	return errors.New("database is locked")
}

func TestStatusUpdateFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	f := newFixture(t, 100)
	f.processor.settings.FinalizationTimeout = 30 * time.Millisecond
	f.chain.Finalize = false
	f.processor.store = failingStatusStore{Service: f.db}
	ctx := context.Background()
	user := dbtest.User(t, f.db, "grace@example.com", dec("0"), dec("200"))

	res, err := f.processor.Withdraw(ctx, user.Id, chaintest.NewAddress(), dec("1"))
	require.Error(t, err)
	assert.False(t, res.Success)

	failed := logs.FilterMessage("Failed to update withdrawal status").All()
	require.NotEmpty(t, failed)
	fields := failed[0].ContextMap()
	assert.Equal(t, res.WithdrawalId, fields["withdrawal_id"])
	assert.Equal(t, res.TxHash, fields["tx_hash"])
}
