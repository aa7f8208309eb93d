package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanGameSession(row rowScanner) (*models.GameSession, error) {
	var session models.GameSession
	var betStr, winStr, beforeStr, afterStr string
	var settledAt sql.NullTime
	err := row.Scan(&session.Id, &session.UserId, &session.GameType, &betStr, &session.Result, &winStr,
		&beforeStr, &afterStr, &session.Settled, &session.Details, &session.CreatedAt, &settledAt)
	if err != nil {
		return nil, err
	}

	if session.BetAmount, err = decimal.NewFromString(betStr); err != nil {
		return nil, fmt.Errorf("failed to parse bet_amount '%s': %w", betStr, err)
	}
	if session.WinAmount, err = decimal.NewFromString(winStr); err != nil {
		return nil, fmt.Errorf("failed to parse win_amount '%s': %w", winStr, err)
	}
	if session.BalanceBefore, err = decimal.NewFromString(beforeStr); err != nil {
		return nil, fmt.Errorf("failed to parse balance_before '%s': %w", beforeStr, err)
	}
	if session.BalanceAfter, err = decimal.NewFromString(afterStr); err != nil {
		return nil, fmt.Errorf("failed to parse balance_after '%s': %w", afterStr, err)
	}
	if settledAt.Valid {
		t := settledAt.Time
		session.SettledAt = &t
	}
	return &session, nil
}

// CreateGameSession writes the pending session row for a new round. Id and
// CreatedAt are filled in when empty.
func (s *Service) CreateGameSession(ctx context.Context, session *models.GameSession) error {
	if session.Id == "" {
		session.Id = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.Result == "" {
		session.Result = models.ResultPending
	}

	_, err := s.db.ExecContext(ctx, queryInsertGameSession,
		session.Id, session.UserId, string(session.GameType), session.BetAmount.String(),
		string(session.Result), session.WinAmount.String(),
		session.BalanceBefore.String(), session.BalanceAfter.String(),
		session.Details, session.CreatedAt)
	if err != nil {
		zap.L().Error("Failed to insert game session",
			zap.String("user_id", session.UserId),
			zap.String("game_type", string(session.GameType)),
			zap.Error(err))
		return fmt.Errorf("unable to insert game session: %w", err)
	}

	zap.L().Debug("Game session created",
		zap.String("session_id", session.Id),
		zap.String("user_id", session.UserId),
		zap.String("game_type", string(session.GameType)),
		zap.String("bet", session.BetAmount.String()))
	return nil
}

func (s *Service) GetGameSession(ctx context.Context, sessionId string) (*models.GameSession, error) {
	session, err := scanGameSession(s.db.QueryRowContext(ctx, queryGetGameSession, sessionId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionId)
		}
		return nil, fmt.Errorf("unable to query game session: %w", err)
	}
	return session, nil
}

func (s *Service) GetUserGameSessions(ctx context.Context, userId string, limit, offset int) ([]models.GameSession, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUserGameSessions, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("unable to query game sessions: %w", err)
	}
	defer closeRows(rows)

	var sessions []models.GameSession
	for rows.Next() {
		session, err := scanGameSession(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan game session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game session rows: %w", err)
	}
	return sessions, nil
}

func (s *Service) GetOpenGameSessions(ctx context.Context, userId string, gameType models.GameType) ([]models.GameSession, error) {
	rows, err := s.db.QueryContext(ctx, queryGetOpenGameSessions, userId, string(gameType))
	if err != nil {
		return nil, fmt.Errorf("unable to query open game sessions: %w", err)
	}
	defer closeRows(rows)

	var sessions []models.GameSession
	for rows.Next() {
		session, err := scanGameSession(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan game session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game session rows: %w", err)
	}
	return sessions, nil
}

// SettleGameSession marks the session settled and applies its balance effect
// in one transaction. A second settle of the same session fails with
// store.ErrSessionAlreadySettled and changes nothing.
func (s *Service) SettleGameSession(ctx context.Context, params store.SettleSessionParams) (*models.GameSession, *models.User, error) {
	var session *models.GameSession
	var user *models.User

	err := withModificationRetry(ctx, "settle_game_session", func() error {
		var err error
		session, user, err = s.settleGameSessionOnce(ctx, params)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("Game session settled",
		zap.String("session_id", session.Id),
		zap.String("user_id", session.UserId),
		zap.String("result", string(session.Result)),
		zap.String("win_amount", session.WinAmount.String()),
		zap.String("balance_after", session.BalanceAfter.String()))

	return session, user, nil
}

func (s *Service) settleGameSessionOnce(ctx context.Context, params store.SettleSessionParams) (*models.GameSession, *models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	session, err := scanGameSession(tx.QueryRowContext(ctx, queryGetGameSession, params.SessionId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, params.SessionId)
		}
		return nil, nil, fmt.Errorf("unable to query game session: %w", err)
	}
	if session.Settled {
		return nil, nil, fmt.Errorf("%w: %s", store.ErrSessionAlreadySettled, params.SessionId)
	}

	user, _, err := s.subledger.ApplyAdjustment(ctx, tx, BalanceMutationParams{
		UserId:          session.UserId,
		TransactionType: TransactionGameSettlement,
		Reference:       session.Id,
		Adjustment:      params.Adjustment,
	})
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, querySettleGameSession,
		string(params.Result), params.WinAmount.String(), user.Total().String(), params.Details, now, session.Id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to settle game session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil, fmt.Errorf("%w: %s", store.ErrSessionAlreadySettled, session.Id)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	session.Result = params.Result
	session.WinAmount = params.WinAmount
	session.BalanceAfter = user.Total()
	session.Details = params.Details
	session.Settled = true
	session.SettledAt = &now

	return session, user, nil
}
