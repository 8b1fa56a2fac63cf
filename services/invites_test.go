package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/glupper/vouch/core"
)

// Requirement: only active accounts can issue invites; codes start unused and
// carry the computed deadline.
func TestTrustService_CreateInvite(t *testing.T) {
	t.Run("issues an open-ended invite", func(t *testing.T) {
		// Arrange
		storage := NewFakeTrustStorage()
		service, clock := newTestService(t, storage)
		sponsor := seedAccount(t, storage, clock, "sponsor", nil)

		// Act
		invite, err := service.CreateInvite(context.Background(), sponsor.ID, 5, nil)

		// Assert
		if err != nil {
			t.Fatalf("CreateInvite() error = %v", err)
		}
		if invite.Code == "" {
			t.Error("CreateInvite() should return a code")
		}
		if invite.Uses != 0 || !invite.IsActive || invite.MaxUses != 5 {
			t.Errorf("invite = %+v, want fresh active code with max_uses 5", invite)
		}
		if invite.ExpiresAt != nil {
			t.Error("expires_at should be nil when no expiry was requested")
		}

		events := storage.Events()
		if len(events) != 1 || events[0].EventType != core.EventInviteCreated {
			t.Errorf("events = %v, want one %q", events, core.EventInviteCreated)
		}
	})

	t.Run("computes the expiry deadline", func(t *testing.T) {
		// Arrange
		storage := NewFakeTrustStorage()
		service, clock := newTestService(t, storage)
		sponsor := seedAccount(t, storage, clock, "sponsor", nil)
		days := 7

		// Act
		invite, err := service.CreateInvite(context.Background(), sponsor.ID, 1, &days)

		// Assert
		if err != nil {
			t.Fatalf("CreateInvite() error = %v", err)
		}
		want := clock.Now().AddDate(0, 0, days)
		if invite.ExpiresAt == nil || !invite.ExpiresAt.Equal(want) {
			t.Errorf("expires_at = %v, want %v", invite.ExpiresAt, want)
		}
	})

	t.Run("guard failures", func(t *testing.T) {
		tests := []struct {
			name    string
			maxUses int
			setup   func(storage *FakeTrustStorage, clock *testClock) uuid.UUID
			wantErr error
		}{
			{
				name:    "unknown account",
				maxUses: 1,
				setup: func(storage *FakeTrustStorage, clock *testClock) uuid.UUID {
					return uuid.New()
				},
				wantErr: core.ErrAccountNotFound,
			},
			{
				name:    "revouch_required account",
				maxUses: 1,
				setup: func(storage *FakeTrustStorage, clock *testClock) uuid.UUID {
					account := seedAccount(t, storage, clock, "sponsor", nil)
					account.Status = core.StatusRevouchRequired
					storage.PutAccount(account)
					return account.ID
				},
				wantErr: core.ErrInvalidAccountState,
			},
			{
				name:    "banned account",
				maxUses: 1,
				setup: func(storage *FakeTrustStorage, clock *testClock) uuid.UUID {
					account := seedAccount(t, storage, clock, "sponsor", nil)
					account.Status = core.StatusBanned
					storage.PutAccount(account)
					return account.ID
				},
				wantErr: core.ErrInvalidAccountState,
			},
			{
				name:    "zero max uses",
				maxUses: 0,
				setup: func(storage *FakeTrustStorage, clock *testClock) uuid.UUID {
					return seedAccount(t, storage, clock, "sponsor", nil).ID
				},
				wantErr: core.ErrInvalidMaxUses,
			},
		}

		for _, test := range tests {
			test := test
			t.Run(test.name, func(t *testing.T) {
				// Arrange
				storage := NewFakeTrustStorage()
				service, clock := newTestService(t, storage)
				accountID := test.setup(storage, clock)

				// Act
				_, err := service.CreateInvite(context.Background(), accountID, test.maxUses, nil)

				// Assert
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("CreateInvite() error = %v, want %v", err, test.wantErr)
				}
			})
		}
	})
}

// Requirement: invites list newest-first.
func TestTrustService_ListInvites(t *testing.T) {
	// Arrange
	storage := NewFakeTrustStorage()
	service, clock := newTestService(t, storage)
	sponsor := seedAccount(t, storage, clock, "sponsor", nil)

	first, err := service.CreateInvite(context.Background(), sponsor.ID, 1, nil)
	if err != nil {
		t.Fatalf("CreateInvite() error = %v", err)
	}
	clock.Advance(time.Hour)
	second, err := service.CreateInvite(context.Background(), sponsor.ID, 1, nil)
	if err != nil {
		t.Fatalf("CreateInvite() error = %v", err)
	}

	// Act
	invites, err := service.ListInvites(context.Background(), sponsor.ID)

	// Assert
	if err != nil {
		t.Fatalf("ListInvites() error = %v", err)
	}
	if len(invites) != 2 {
		t.Fatalf("len(invites) = %d, want 2", len(invites))
	}
	if invites[0].Code != second.Code || invites[1].Code != first.Code {
		t.Errorf("invites not ordered newest-first: %q then %q", invites[0].Code, invites[1].Code)
	}
}
