// Package chaintest provides an in-memory chain.Client for tests.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"casino-settlement-go/internal/chain"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// DefaultFee is charged to the fee payer of every transfer.
const DefaultFee = 5000

// Transfer is a transfer submitted through SendTransfer
type Transfer struct {
	Signature string
	From      string
	To        string
	FeePayer  string
	Lamports  uint64
}

// Fake keeps balances and history in memory. Transfers settle immediately
// and are reported finalized unless Finalize is false.
type Fake struct {
	mu           sync.Mutex
	balances     map[string]uint64
	history      map[string][]chain.SignatureInfo
	transactions map[string]*chain.Transaction
	statuses     map[string]*chain.SignatureStatus
	transfers    []Transfer
	slot         uint64

	Finalize     bool
	RentExempt   uint64
	TransferErr  error
	BalanceErr   map[string]error
	BalanceDelay map[string]time.Duration

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

var _ chain.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		balances:     make(map[string]uint64),
		history:      make(map[string][]chain.SignatureInfo),
		transactions: make(map[string]*chain.Transaction),
		statuses:     make(map[string]*chain.SignatureStatus),
		Finalize:     true,
		RentExempt:   890880,
		BalanceErr:   make(map[string]error),
		BalanceDelay: make(map[string]time.Duration),
	}
}

// NewAddress returns a fresh valid address.
func NewAddress() string {
	return solana.NewWallet().PublicKey().String()
}

// SetBalance overwrites the balance of address without recording history.
func (f *Fake) SetBalance(address string, lamports uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[address] = lamports
}

// Fund records a finalized inbound transfer from source to address and
// returns its signature.
func (f *Fake) Fund(address, source string, lamports uint64) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	sig := f.nextSignature()
	tx := &chain.Transaction{
		Signature:    sig,
		Slot:         f.slot,
		BlockTime:    time.Now().UTC(),
		Accounts:     []string{source, address},
		PreBalances:  []uint64{lamports + DefaultFee, f.balances[address]},
		PostBalances: []uint64{0, f.balances[address] + lamports},
		Fee:          DefaultFee,
	}
	f.balances[address] += lamports
	f.record(tx)
	return sig
}

// Balance returns the current balance of address.
func (f *Fake) Balance(address string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[address]
}

// Transfers returns a copy of every transfer submitted so far.
func (f *Fake) Transfers() []Transfer {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Transfer, len(f.transfers))
	copy(out, f.transfers)
	return out
}

// MaxConcurrentBalanceCalls is the highest number of GetBalance calls seen in flight.
func (f *Fake) MaxConcurrentBalanceCalls() int64 {
	return f.maxInFlight.Load()
}

func (f *Fake) nextSignature() string {
	f.slot++
	return fmt.Sprintf("sig-%d-%s", f.slot, uuid.NewString()[:8])
}

func (f *Fake) record(tx *chain.Transaction) {
	f.transactions[tx.Signature] = tx
	info := chain.SignatureInfo{Signature: tx.Signature, Slot: tx.Slot, BlockTime: tx.BlockTime, Failed: tx.Failed}
	for _, account := range tx.Accounts {
		f.history[account] = append([]chain.SignatureInfo{info}, f.history[account]...)
	}
	status := chain.StatusFinalized
	if !f.Finalize {
		status = chain.StatusConfirmed
	}
	f.statuses[tx.Signature] = &chain.SignatureStatus{Slot: tx.Slot, Status: status}
}

func (f *Fake) GetBalance(ctx context.Context, address string) (uint64, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxInFlight.Load()
		if n <= max || f.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}

	f.mu.Lock()
	delay := f.BalanceDelay[address]
	err := f.BalanceErr[address]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err != nil {
		return 0, err
	}
	return f.Balance(address), nil
}

func (f *Fake) GetSignaturesForAddress(_ context.Context, address string, limit int) ([]chain.SignatureInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	history := f.history[address]
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	out := make([]chain.SignatureInfo, len(history))
	copy(out, history)
	return out, nil
}

func (f *Fake) GetTransaction(_ context.Context, signature string) (*chain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.transactions[signature]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", signature)
	}
	cp := *tx
	return &cp, nil
}

func (f *Fake) GetLatestBlockhash(_ context.Context) (string, error) {
	return solana.HashFromBytes(make([]byte, 32)).String(), nil
}

func (f *Fake) GetMinimumBalanceForRentExemption(_ context.Context, _ uint64) (uint64, error) {
	return f.RentExempt, nil
}

func (f *Fake) SendTransfer(_ context.Context, req chain.TransferRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.TransferErr != nil {
		return "", f.TransferErr
	}

	from := req.From.Address()
	payer := from
	if req.FeePayer != nil {
		payer = req.FeePayer.Address()
	}

	need := req.Lamports
	if payer == from {
		need += DefaultFee
	}
	if f.balances[from] < need {
		return "", errors.New("insufficient funds for transfer")
	}
	if payer != from && f.balances[payer] < DefaultFee {
		return "", errors.New("insufficient funds for fee")
	}

	sig := f.nextSignature()
	accounts := []string{payer}
	if from != payer {
		accounts = append(accounts, from)
	}
	accounts = append(accounts, req.To)

	pre := make([]uint64, len(accounts))
	for i, a := range accounts {
		pre[i] = f.balances[a]
	}
	f.balances[payer] -= DefaultFee
	f.balances[from] -= req.Lamports
	f.balances[req.To] += req.Lamports
	post := make([]uint64, len(accounts))
	for i, a := range accounts {
		post[i] = f.balances[a]
	}

	f.record(&chain.Transaction{
		Signature:    sig,
		Slot:         f.slot,
		BlockTime:    time.Now().UTC(),
		Accounts:     accounts,
		PreBalances:  pre,
		PostBalances: post,
		Fee:          DefaultFee,
	})
	f.transfers = append(f.transfers, Transfer{Signature: sig, From: from, To: req.To, FeePayer: payer, Lamports: req.Lamports})
	return sig, nil
}

func (f *Fake) GetSignatureStatus(_ context.Context, signature string) (*chain.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[signature]
	if !ok {
		return nil, nil
	}
	cp := *status
	return &cp, nil
}

func (f *Fake) ValidateAddress(address string) error {
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return fmt.Errorf("%w: %s", chain.ErrInvalidAddress, address)
	}
	return nil
}

// FailSignature marks a submitted transaction as errored on chain.
func (f *Fake) FailSignature(signature, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.statuses[signature]; ok {
		status.Err = reason
	}
}
