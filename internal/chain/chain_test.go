package chain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"casino-settlement-go/internal/chain"
	"casino-settlement-go/internal/chain/chaintest"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionDeltaAndSender(t *testing.T) {
	tx := &chain.Transaction{
		Accounts:     []string{"payer", "sender", "deposit"},
		PreBalances:  []uint64{10_000, 5_000_000, 0},
		PostBalances: []uint64{5_000, 1_000_000, 4_000_000},
	}

	delta, ok := tx.Delta("deposit")
	require.True(t, ok)
	assert.Equal(t, int64(4_000_000), delta)

	_, ok = tx.Delta("missing")
	assert.False(t, ok)

	assert.Equal(t, "sender", tx.LargestSender())
}

func TestLamportsToSOL(t *testing.T) {
	tests := []struct {
		lamports uint64
		want     string
	}{
		{0, "0"},
		{1_000_000_000, "1"},
		{1_500_000_000, "1.5"},
		{5000, "0.000005"},
		{123_456_789_012, "123.456789012"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, chain.LamportsToSOL(tt.lamports))
	}
}

func TestKeypairRoundTrip(t *testing.T) {
	wallet := solana.NewWallet()
	kp, err := chain.KeypairFromBase58(wallet.PrivateKey.String())
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKey().String(), kp.Address())

	_, err = chain.KeypairFromBase58("not-a-key")
	assert.Error(t, err)
}

func transfer(t *testing.T, fake *chaintest.Fake) string {
	t.Helper()
	wallet := solana.NewWallet()
	from, err := chain.KeypairFromBase58(wallet.PrivateKey.String())
	require.NoError(t, err)

	fake.SetBalance(from.Address(), 10_000_000)
	sig, err := fake.SendTransfer(context.Background(), chain.TransferRequest{
		From:     from,
		To:       chaintest.NewAddress(),
		Lamports: 1_000_000,
	})
	require.NoError(t, err)
	return sig
}

func TestWaitForFinalization(t *testing.T) {
	fake := chaintest.New()
	sig := transfer(t, fake)

	err := chain.WaitForFinalization(context.Background(), fake, sig, time.Second, 10*time.Millisecond)
	assert.NoError(t, err)
}

func TestWaitForFinalizationTimeout(t *testing.T) {
	fake := chaintest.New()
	fake.Finalize = false
	sig := transfer(t, fake)

	err := chain.WaitForFinalization(context.Background(), fake, sig, 50*time.Millisecond, 10*time.Millisecond)
	assert.True(t, errors.Is(err, chain.ErrFinalizationTimeout), "got %v", err)
}

func TestWaitForFinalizationFailedTransaction(t *testing.T) {
	fake := chaintest.New()
	fake.Finalize = false
	sig := transfer(t, fake)
	fake.FailSignature(sig, "InstructionError")

	err := chain.WaitForFinalization(context.Background(), fake, sig, time.Second, 10*time.Millisecond)
	assert.True(t, errors.Is(err, chain.ErrTransactionFailed), "got %v", err)
}
