package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/glupper/vouch/core"
)

// Revouch lets a revouch_required account regain active status by redeeming a
// fresh invite from a qualified sponsor. The target account row is locked for
// the whole transaction, so two concurrent attempts on the same account
// serialize: the second one finds the account already active and fails the
// status guard.
//
// Guards run in order, each with a distinct failure:
//  1. account exists
//  2. not banned (terminal)
//  3. exactly revouch_required
//  4. invite consumable, and not issued by the account itself
//  5. new sponsor currently active
//  6. new sponsor differs from the previous sponsor
//  7. recovery cooldown elapsed, if one was set
//  8. sponsor trust age at least MinSponsorTrustDays
//  9. sponsor demerits at most MaxSponsorDemerits
func (s *TrustService) Revouch(ctx context.Context, accountID uuid.UUID, inviteCode string) (*core.Account, error) {
	var revouched *core.Account
	err := s.db.WithTx(ctx, func(tx core.TrustTx) error {
		account, err := tx.GetAccountForUpdate(accountID)
		if err != nil {
			return err
		}
		if account.Status == core.StatusBanned {
			return fmt.Errorf("%w: banned accounts cannot revouch", core.ErrInvalidAccountState)
		}
		if account.Status != core.StatusRevouchRequired {
			return fmt.Errorf("%w: account does not require revouch", core.ErrInvalidAccountState)
		}

		invite, err := s.consumeInvite(tx, inviteCode)
		if err != nil {
			return err
		}
		if invite.SponsorID == account.ID {
			return fmt.Errorf("%w: self-vouch is not allowed", core.ErrInvalidAccountState)
		}

		sponsor, err := s.ensureActiveSponsor(tx, invite.SponsorID)
		if err != nil {
			return err
		}

		if account.SponsorID != nil && *account.SponsorID == sponsor.ID {
			return fmt.Errorf("%w: recovery requires a different sponsor", core.ErrInvalidAccountState)
		}

		now := s.now()
		if account.RecoveryEligibleAt != nil && now.Before(*account.RecoveryEligibleAt) {
			return fmt.Errorf("%w: recovery cooldown has not elapsed", core.ErrInvalidAccountState)
		}
		if sponsor.TrustDays(now) < s.minSponsorTrustDays {
			return fmt.Errorf("%w: sponsor trust age too low", core.ErrInvalidAccountState)
		}
		if sponsor.DemeritCount > s.maxSponsorDemerits {
			return fmt.Errorf("%w: sponsor has too many demerits", core.ErrInvalidAccountState)
		}

		revouched, err = tx.SetAccountActive(account.ID, sponsor.ID, now)
		if err != nil {
			return err
		}

		return tx.AppendEvent(account.ID, core.EventRevouched, map[string]any{
			"sponsor_id": sponsor.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return revouched, nil
}
