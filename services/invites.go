package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glupper/vouch/core"
	"github.com/glupper/vouch/pkg/crypto"
)

// CreateInvite issues a new bounded-use invite code for an active account.
// expiresInDays of nil means the code never expires.
func (s *TrustService) CreateInvite(ctx context.Context, accountID uuid.UUID, maxUses int, expiresInDays *int) (*core.InviteCode, error) {
	if maxUses < 1 {
		return nil, core.ErrInvalidMaxUses
	}

	account, err := s.db.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status != core.StatusActive {
		return nil, fmt.Errorf("%w: only active accounts can issue invites", core.ErrInvalidAccountState)
	}

	now := s.now()
	var expiresAt *time.Time
	if expiresInDays != nil {
		deadline := now.AddDate(0, 0, *expiresInDays)
		expiresAt = &deadline
	}

	// Retry on the (negligibly rare) unique-constraint collision of the
	// random code.
	var lastErr error
	for attempt := 0; attempt < inviteInsertAttempts; attempt++ {
		code, err := crypto.GenerateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invite code: %w", err)
		}

		invite := &core.InviteCode{
			Code:      code,
			SponsorID: accountID,
			MaxUses:   maxUses,
			Uses:      0,
			ExpiresAt: expiresAt,
			IsActive:  true,
			CreatedAt: now,
		}

		err = s.db.WithTx(ctx, func(tx core.TrustTx) error {
			if err := tx.InsertInvite(invite); err != nil {
				return err
			}
			return tx.AppendEvent(accountID, core.EventInviteCreated, map[string]any{
				"code":     code,
				"max_uses": maxUses,
			})
		})
		if err == nil {
			return invite, nil
		}
		if !errors.Is(err, core.ErrDuplicateInviteCode) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to create invite: %w", lastErr)
}

// ListInvites returns an account's invite codes, newest first.
func (s *TrustService) ListInvites(ctx context.Context, accountID uuid.UUID) ([]*core.InviteCode, error) {
	return s.db.ListInvitesBySponsor(ctx, accountID)
}
