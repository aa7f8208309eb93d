package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casino-settlement-go/internal/events"
	"casino-settlement-go/internal/metrics"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service records one game session per round. A session is opened with the
// balance snapshot at round start and settled exactly once, together with
// its balance effect.
type Service struct {
	store     store.Store
	publisher events.Publisher
}

func NewService(s store.Store, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{store: s, publisher: publisher}
}

// Open writes a pending session for the user with balanceAfter mirroring balanceBefore.
func (l *Service) Open(ctx context.Context, user *models.User, gameType models.GameType, bet decimal.Decimal) (*models.GameSession, error) {
	session := &models.GameSession{
		UserId:        user.Id,
		GameType:      gameType,
		BetAmount:     bet,
		Result:        models.ResultPending,
		WinAmount:     decimal.Zero,
		BalanceBefore: user.Total(),
		BalanceAfter:  user.Total(),
	}
	if err := l.store.CreateGameSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to open game session: %w", err)
	}
	return session, nil
}

// Settle finalizes the session and applies adjustment to the user in one
// store transaction. Settling twice returns store.ErrSessionAlreadySettled.
func (l *Service) Settle(ctx context.Context, params store.SettleSessionParams) (*models.GameSession, *models.User, error) {
	start := time.Now()

	session, user, err := l.store.SettleGameSession(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	metrics.RecordSettlement(string(session.GameType), string(session.Result), time.Since(start))

	event := events.GameSessionSettled{
		SessionId:     session.Id,
		UserId:        session.UserId,
		GameType:      string(session.GameType),
		BetAmount:     session.BetAmount,
		Result:        string(session.Result),
		WinAmount:     session.WinAmount,
		BalanceBefore: session.BalanceBefore,
		BalanceAfter:  session.BalanceAfter,
		SettledAt:     time.Now().UTC(),
	}
	if session.SettledAt != nil {
		event.SettledAt = *session.SettledAt
	}
	if err := l.publisher.Publish(ctx, events.RoutingGameSessionSettled, event); err != nil {
		// The settlement is committed; a lost event only affects downstream reporting.
		zap.L().Warn("Failed to publish settlement event",
			zap.String("session_id", session.Id),
			zap.String("request_id", models.RequestIdFromContext(ctx)),
			zap.Error(err))
	}

	return session, user, nil
}

// VoidOpen settles every open session of gameType for the user as void with
// no balance effect and returns how many it closed.
func (l *Service) VoidOpen(ctx context.Context, userId string, gameType models.GameType, reason string) (int, error) {
	open, err := l.store.GetOpenGameSessions(ctx, userId, gameType)
	if err != nil {
		return 0, err
	}

	voided := 0
	for _, session := range open {
		_, _, err := l.Settle(ctx, store.SettleSessionParams{
			SessionId: session.Id,
			Result:    models.ResultVoid,
			WinAmount: decimal.Zero,
			Details:   reason,
		})
		if err != nil {
			if errors.Is(err, store.ErrSessionAlreadySettled) {
				continue
			}
			return voided, fmt.Errorf("failed to void session %s: %w", session.Id, err)
		}
		voided++
		zap.L().Warn("Voided unsettled game session",
			zap.String("session_id", session.Id),
			zap.String("user_id", userId),
			zap.String("game_type", string(gameType)),
			zap.String("bet", session.BetAmount.String()))
	}
	return voided, nil
}

func (l *Service) History(ctx context.Context, userId string, limit, offset int) ([]models.GameSession, error) {
	return l.store.GetUserGameSessions(ctx, userId, limit, offset)
}
