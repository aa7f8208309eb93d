package database

import (
	"context"
	"testing"
	"time"

	"casino-settlement-go/internal/models"

	"github.com/shopspring/decimal"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()

	// One connection keeps the in-memory database alive across calls
	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

func createTestUser(t *testing.T, service *Service, email string) *models.User {
	t.Helper()

	user, err := service.CreateUser(context.Background(), "Test User", email)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

// fundUser credits the crypto side through a recorded deposit so the subledger stays consistent.
func fundUser(t *testing.T, service *Service, userId string, eur decimal.Decimal, txHash string) *models.User {
	t.Helper()

	_, user, err := service.RecordDeposit(context.Background(), storeDeposit(userId, txHash, eur, true))
	if err != nil {
		t.Fatalf("RecordDeposit failed: %v", err)
	}
	return user
}

func TestNewService_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.DatabaseConfig
	}{
		{"empty path", models.DatabaseConfig{MaxOpenConns: 1, PingTimeout: time.Second}},
		{"zero open conns", models.DatabaseConfig{Path: ":memory:", PingTimeout: time.Second}},
		{"negative idle conns", models.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second}},
		{"zero ping timeout", models.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(context.Background(), tt.cfg); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestCreateUser_AssignsSequentialIndexes(t *testing.T) {
	service := setupTestService(t)

	first := createTestUser(t, service, "first@example.com")
	second := createTestUser(t, service, "second@example.com")

	if second.Index != first.Index+1 {
		t.Errorf("Expected index %d, got %d", first.Index+1, second.Index)
	}
	if !first.Total().IsZero() {
		t.Errorf("Expected zero balance, got %s", first.Total().String())
	}

	if _, err := service.CreateUser(context.Background(), "Dup", "first@example.com"); err == nil {
		t.Error("Expected error for duplicate email")
	}
}

func TestAssignDepositAddress(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	alice := createTestUser(t, service, "alice@example.com")
	bob := createTestUser(t, service, "bob@example.com")

	if err := service.AssignDepositAddress(ctx, alice.Id, "addr-alice"); err != nil {
		t.Fatalf("AssignDepositAddress failed: %v", err)
	}
	// Same address again is a no-op
	if err := service.AssignDepositAddress(ctx, alice.Id, "addr-alice"); err != nil {
		t.Errorf("Expected idempotent assignment, got %v", err)
	}
	if err := service.AssignDepositAddress(ctx, alice.Id, "addr-other"); err == nil {
		t.Error("Expected error when replacing an assigned address")
	}
	if err := service.AssignDepositAddress(ctx, bob.Id, "addr-alice"); err == nil {
		t.Error("Expected error when address belongs to another user")
	}

	users, err := service.GetUsersWithDepositAddress(ctx)
	if err != nil {
		t.Fatalf("GetUsersWithDepositAddress failed: %v", err)
	}
	if len(users) != 1 || users[0].Id != alice.Id {
		t.Errorf("Expected only alice to be monitored, got %+v", users)
	}
}
