package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a player account with its dual balance
type User struct {
	Id             string          `db:"id" json:"id"`
	Index          uint32          `db:"user_index" json:"index"`
	Name           string          `db:"name" json:"name"`
	Email          string          `db:"email" json:"email"`
	BalanceFiat    decimal.Decimal `db:"balance_fiat" json:"balance_fiat"`
	BalanceCrypto  decimal.Decimal `db:"balance_crypto" json:"balance_crypto"`
	DepositAddress string          `db:"deposit_address" json:"deposit_address,omitempty"`
	Version        int64           `db:"version" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Total is the derived fiat-equivalent balance across both fields.
func (u *User) Total() decimal.Decimal {
	return u.BalanceFiat.Add(u.BalanceCrypto)
}

type GameType string

const (
	GameBlackjack GameType = "blackjack"
	GameRoulette  GameType = "roulette"
)

type GameResult string

const (
	ResultPending GameResult = "pending"
	ResultWin     GameResult = "win"
	ResultLoss    GameResult = "loss"
	ResultDraw    GameResult = "draw"
	ResultVoid    GameResult = "void"
)

// GameSession is the audit record of one round. It is written at round start
// and settled exactly once.
type GameSession struct {
	Id            string          `db:"id" json:"id"`
	UserId        string          `db:"user_id" json:"user_id"`
	GameType      GameType        `db:"game_type" json:"game_type"`
	BetAmount     decimal.Decimal `db:"bet_amount" json:"bet_amount"`
	Result        GameResult      `db:"result" json:"result"`
	WinAmount     decimal.Decimal `db:"win_amount" json:"win_amount"`
	BalanceBefore decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	Settled       bool            `db:"settled" json:"settled"`
	Details       string          `db:"details" json:"details,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	SettledAt     *time.Time      `db:"settled_at" json:"settled_at,omitempty"`
}

type DepositStatus string

const (
	DepositCredited     DepositStatus = "credited"
	DepositPendingPrice DepositStatus = "pending_price"
)

// Deposit is written once per inbound on-chain transfer, keyed by TxHash
type Deposit struct {
	Id             string          `db:"id" json:"id"`
	UserId         string          `db:"user_id" json:"user_id"`
	EurAmount      decimal.Decimal `db:"eur_amount" json:"eur_amount"`
	Network        string          `db:"network" json:"network"`
	DepositAddress string          `db:"deposit_address" json:"deposit_address"`
	SourceAddress  string          `db:"source_address" json:"source_address"`
	Asset          string          `db:"asset" json:"asset"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Lamports       uint64          `db:"lamports" json:"lamports"`
	TxHash         string          `db:"tx_hash" json:"tx_hash"`
	SweepTxHash    string          `db:"sweep_tx_hash" json:"sweep_tx_hash"`
	Price          decimal.Decimal `db:"price" json:"price"`
	Status         DepositStatus   `db:"status" json:"status"`
	Details        string          `db:"details" json:"details,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
	WithdrawalSent     WithdrawalStatus = "sent"
)

// Withdrawal tracks a treasury-funded transfer to an external address
type Withdrawal struct {
	Id            string           `db:"id" json:"id"`
	UserId        string           `db:"user_id" json:"user_id"`
	TargetAddress string           `db:"target_address" json:"target_address"`
	Asset         string           `db:"asset" json:"asset"`
	Amount        decimal.Decimal  `db:"amount" json:"amount"`
	EurAmount     decimal.Decimal  `db:"eur_amount" json:"eur_amount"`
	FeeEur        decimal.Decimal  `db:"fee_eur" json:"fee_eur"`
	Status        WithdrawalStatus `db:"status" json:"status"`
	TxHash        string           `db:"tx_hash" json:"tx_hash,omitempty"`
	Reason        string           `db:"reason" json:"reason,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// Transaction represents one immutable balance mutation in the subledger
type Transaction struct {
	Id              string          `db:"id"`
	UserId          string          `db:"user_id"`
	TransactionType string          `db:"transaction_type"`
	FiatDelta       decimal.Decimal `db:"fiat_delta"`
	CryptoDelta     decimal.Decimal `db:"crypto_delta"`
	BalanceBefore   decimal.Decimal `db:"balance_before"`
	BalanceAfter    decimal.Decimal `db:"balance_after"`
	Reference       string          `db:"reference"`
	CreatedAt       time.Time       `db:"created_at"`
}

// AuditLog is a free-form record of a money movement for admin reporting
type AuditLog struct {
	Id        string    `db:"id"`
	UserId    string    `db:"user_id"`
	Action    string    `db:"action"`
	Details   string    `db:"details"`
	CreatedAt time.Time `db:"created_at"`
}

type AdjustmentKind string

const (
	// AdjustCredit splits the amount evenly between fiat and crypto.
	AdjustCredit AdjustmentKind = "credit"
	// AdjustDeduct takes crypto first, then fiat.
	AdjustDeduct AdjustmentKind = "deduct"
	// AdjustCreditCrypto credits crypto only.
	AdjustCreditCrypto AdjustmentKind = "credit_crypto"
	// AdjustDebitCrypto debits crypto only and fails when it does not cover the amount.
	AdjustDebitCrypto AdjustmentKind = "debit_crypto"
)

// BalanceAdjustment is the only way stores are asked to change a balance
type BalanceAdjustment struct {
	Kind   AdjustmentKind
	Amount decimal.Decimal
}

// IsZero reports whether the adjustment leaves the balance untouched.
func (a BalanceAdjustment) IsZero() bool {
	return a.Kind == "" || !a.Amount.IsPositive()
}
