package vouch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type dummyHTTP struct {
	registeredBasePath string
	registeredHandler  TrustHandler
}

func (d *dummyHTTP) RegisterRoutes(handler TrustHandler, basePath string) error {
	d.registeredHandler = handler
	d.registeredBasePath = basePath
	return nil
}

func TestNewShouldReturnErrStorageRequired(t *testing.T) {
	_, err := New(Config{})
	if !errors.Is(err, ErrStorageRequired) {
		t.Fatalf("expected ErrStorageRequired sentinel (errors.Is), got %v", err)
	}
}

func TestNewShouldRejectBadTuning(t *testing.T) {
	tests := []struct {
		name    string
		trust   TrustConfig
		wantErr error
	}{
		{
			name:    "negative cooldown",
			trust:   TrustConfig{RecoveryCooldown: -time.Hour},
			wantErr: ErrBadCooldown,
		},
		{
			name:    "negative sponsor trust days",
			trust:   TrustConfig{MinSponsorTrustDays: -1},
			wantErr: ErrBadSponsorBar,
		},
		{
			name:    "negative sponsor demerit cap",
			trust:   TrustConfig{MaxSponsorDemerits: -1},
			wantErr: ErrBadSponsorBar,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			_, err := New(Config{
				Database: NewFakeTrustStorage(),
				Trust:    test.trust,
			})
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestNewShouldRegisterRoutesOnDefaultBasePath(t *testing.T) {
	adapter := &dummyHTTP{}

	service, err := New(Config{
		Database: NewFakeTrustStorage(),
		HTTP:     adapter,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if adapter.registeredBasePath != defaultBasePath {
		t.Errorf("base path = %q, want %q", adapter.registeredBasePath, defaultBasePath)
	}
	if adapter.registeredHandler != TrustHandler(service) {
		t.Error("adapter should be wired to the constructed service")
	}
}

func TestNewShouldProduceWorkingService(t *testing.T) {
	storage := NewFakeTrustStorage()
	service, err := New(Config{Database: storage, BasePath: "/trust"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	account, err := service.CreateBootstrapAccount(context.Background(), BootstrapInput{
		Username: "founder",
		Email:    "founder@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("CreateBootstrapAccount failed: %v", err)
	}
	if account.Status != StatusActive {
		t.Errorf("status = %q, want %q", account.Status, StatusActive)
	}
	if account.ID == uuid.Nil {
		t.Error("expected a generated account id")
	}
}
