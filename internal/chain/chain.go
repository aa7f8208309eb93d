package chain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrFinalizationTimeout = errors.New("transaction not finalized before timeout")
	ErrTransactionFailed   = errors.New("transaction failed on chain")
	ErrInvalidAddress      = errors.New("invalid address")
)

// LamportsPerSOL is the number of base units in one SOL.
const LamportsPerSOL = 1_000_000_000

// SignatureInfo is one entry of an address's transaction history, newest first.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime time.Time
	Failed    bool
}

// Transaction is the balance view of a confirmed transaction: every account
// it touched with its lamports before and after.
type Transaction struct {
	Signature    string
	Slot         uint64
	BlockTime    time.Time
	Failed       bool
	Fee          uint64
	Accounts     []string
	PreBalances  []uint64
	PostBalances []uint64
}

// Delta returns the signed lamport change of address in tx.
func (tx *Transaction) Delta(address string) (int64, bool) {
	for i, account := range tx.Accounts {
		if account != address {
			continue
		}
		if i >= len(tx.PreBalances) || i >= len(tx.PostBalances) {
			return 0, false
		}
		return int64(tx.PostBalances[i]) - int64(tx.PreBalances[i]), true
	}
	return 0, false
}

// LargestSender returns the account with the largest balance decrease, the
// probable sender of an inbound transfer.
func (tx *Transaction) LargestSender() string {
	sender := ""
	var largest int64
	for _, account := range tx.Accounts {
		delta, ok := tx.Delta(account)
		if ok && delta < largest {
			largest = delta
			sender = account
		}
	}
	return sender
}

type ConfirmationStatus string

const (
	StatusProcessed ConfirmationStatus = "processed"
	StatusConfirmed ConfirmationStatus = "confirmed"
	StatusFinalized ConfirmationStatus = "finalized"
)

// SignatureStatus is nil-able: an unknown signature has no status yet.
type SignatureStatus struct {
	Slot   uint64
	Status ConfirmationStatus
	Err    string
}

// TransferRequest moves Lamports from From to To. FeePayer signs and pays
// the network fee; when nil, From pays.
type TransferRequest struct {
	From     Keypair
	To       string
	Lamports uint64
	FeePayer *Keypair
}

// Client is the blockchain oracle used by the scanner, the withdrawal
// processor and the address initializer.
type Client interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
	GetLatestBlockhash(ctx context.Context) (string, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
	// SendTransfer builds, signs and submits a transfer and returns its signature.
	SendTransfer(ctx context.Context, req TransferRequest) (string, error)
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
	ValidateAddress(address string) error
}
