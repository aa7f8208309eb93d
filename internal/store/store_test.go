package store

import (
	"errors"
	"fmt"
	"testing"
)

// Compile-time checks that the interface is importable and usable.
func TestStoreInterfaceExists(t *testing.T) {
	_ = ErrDuplicateTransaction
	_ = ErrConcurrentModification
	_ = ErrUserNotFound
	_ = SettleSessionParams{}
	_ = RecordDepositParams{}
	_ = CompleteWithdrawalParams{}

	var _ Store
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	sentinels := []error{
		ErrDuplicateTransaction,
		ErrConcurrentModification,
		ErrSessionAlreadySettled,
		ErrDepositNotPending,
		ErrAddressAlreadyAssigned,
	}
	for _, sentinel := range sentinels {
		wrapped := fmt.Errorf("%w: detail", sentinel)
		if !errors.Is(wrapped, sentinel) {
			t.Errorf("errors.Is lost %v through wrapping", sentinel)
		}
	}
	if errors.Is(ErrDuplicateTransaction, ErrSessionAlreadySettled) {
		t.Error("distinct sentinels must not match each other")
	}
}
