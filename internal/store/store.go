package store

import (
	"context"
	"errors"

	"casino-settlement-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrUserNotFound           = errors.New("user not found")
	ErrSessionNotFound        = errors.New("game session not found")
	ErrSessionAlreadySettled  = errors.New("game session already settled")
	ErrDepositNotFound        = errors.New("deposit not found")
	ErrDepositNotPending      = errors.New("deposit is not pending conversion")
	ErrWithdrawalNotFound     = errors.New("withdrawal not found")
	ErrAddressAlreadyAssigned = errors.New("deposit address already assigned")
)

// SettleSessionParams settles a game session and applies its balance effect
// in one atomic step.
type SettleSessionParams struct {
	SessionId  string
	Result     models.GameResult
	WinAmount  decimal.Decimal
	Details    string
	Adjustment models.BalanceAdjustment
}

// RecordDepositParams records an inbound transfer. When Credit is false the
// deposit is stored as pending price conversion and no balance changes.
type RecordDepositParams struct {
	Deposit models.DepositParams
	// EurAmount is the fiat-equivalent credited to the crypto balance.
	EurAmount decimal.Decimal
	Credit    bool
	AuditLog  string
}

// CompleteWithdrawalParams marks a withdrawal sent and debits the user.
type CompleteWithdrawalParams struct {
	WithdrawalId string
	TxHash       string
	Debit        decimal.Decimal
}

// Store defines the repository contract every backend must satisfy.
type Store interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, name, email string) (*models.User, error)
	GetUsersWithDepositAddress(ctx context.Context) ([]models.User, error)
	AssignDepositAddress(ctx context.Context, userId, address string) error

	// --- Game sessions ---
	CreateGameSession(ctx context.Context, session *models.GameSession) error
	GetGameSession(ctx context.Context, sessionId string) (*models.GameSession, error)
	GetUserGameSessions(ctx context.Context, userId string, limit, offset int) ([]models.GameSession, error)
	GetOpenGameSessions(ctx context.Context, userId string, gameType models.GameType) ([]models.GameSession, error)
	SettleGameSession(ctx context.Context, params SettleSessionParams) (*models.GameSession, *models.User, error)

	// --- Deposits ---
	HasDeposit(ctx context.Context, txHash string) (bool, error)
	RecordDeposit(ctx context.Context, params RecordDepositParams) (*models.Deposit, *models.User, error)
	GetPendingDeposits(ctx context.Context) ([]models.Deposit, error)
	CompletePendingDeposit(ctx context.Context, depositId string, price, eurAmount decimal.Decimal) (*models.Deposit, *models.User, error)
	GetUserDeposits(ctx context.Context, userId string, limit, offset int) ([]models.Deposit, error)

	// --- Withdrawals ---
	CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error
	UpdateWithdrawalStatus(ctx context.Context, withdrawalId string, status models.WithdrawalStatus, txHash, reason string) error
	CompleteWithdrawal(ctx context.Context, params CompleteWithdrawalParams) (*models.Withdrawal, *models.User, error)
	GetWithdrawal(ctx context.Context, withdrawalId string) (*models.Withdrawal, error)
	GetUserWithdrawals(ctx context.Context, userId string, limit, offset int) ([]models.Withdrawal, error)
	// GetReservedWithdrawalTotal sums value plus fee of approved withdrawals not yet debited.
	GetReservedWithdrawalTotal(ctx context.Context, userId string) (decimal.Decimal, error)

	// --- Subledger / audit ---
	GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error)
	ReconcileUserBalance(ctx context.Context, userId string) error
	AddAuditLog(ctx context.Context, userId, action, details string) error

	// --- Lifecycle ---
	Close()
}
