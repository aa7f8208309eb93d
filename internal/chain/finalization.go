package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// WaitForFinalization polls the status of signature until it is finalized,
// failed, or timeout elapses. A transaction that errored on chain returns
// ErrTransactionFailed; running out of time returns ErrFinalizationTimeout.
func WaitForFinalization(ctx context.Context, client Client, signature string, timeout, poll time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		status, err := client.GetSignatureStatus(ctx, signature)
		if err != nil {
			zap.L().Debug("Signature status query failed",
				zap.String("signature", signature),
				zap.Error(err))
		} else if status != nil {
			if status.Err != "" {
				return fmt.Errorf("%w: %s: %s", ErrTransactionFailed, signature, status.Err)
			}
			if status.Status == StatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s after %s", ErrFinalizationTimeout, signature, timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
