package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/glupper/vouch/core"
)

// ConvictAndBanTree bans the convicted account, flags its entire sponsorship
// subtree revouch_required with a recovery cooldown, deactivates every invite
// issued inside the subtree, and assesses one demerit against the convicted
// account's direct sponsor.
//
// Replaying against an already-banned root degrades to a no-op on the
// descendants (already-banned accounts are never downgraded). Concurrent
// convictions over overlapping subtrees must serialize; the row lock on the
// convicted root provides that whenever one root is an ancestor of the other,
// and the transactional bulk updates cover shared sponsor demerit counters.
func (s *TrustService) ConvictAndBanTree(ctx context.Context, accountID uuid.UUID, reason string) (*core.ConvictionResult, error) {
	var result *core.ConvictionResult
	err := s.db.WithTx(ctx, func(tx core.TrustTx) error {
		convicted, err := tx.GetAccountForUpdate(accountID)
		if err != nil {
			return err
		}

		subtreeIDs, err := tx.SubtreeIDs(accountID)
		if err != nil {
			return err
		}
		downstreamIDs := make([]uuid.UUID, 0, len(subtreeIDs))
		for _, id := range subtreeIDs {
			if id != accountID {
				downstreamIDs = append(downstreamIDs, id)
			}
		}

		now := s.now()
		recoveryEligibleAt := now.Add(s.recoveryCooldown)

		if err := tx.BanAccount(accountID, now); err != nil {
			return err
		}
		if len(downstreamIDs) > 0 {
			if err := tx.MarkRevouchRequired(downstreamIDs, &recoveryEligibleAt, now); err != nil {
				return err
			}
		}

		// Even fully-used codes flip inactive; the subtree must not grow.
		if err := tx.DeactivateInvitesBySponsors(subtreeIDs); err != nil {
			return err
		}

		var penalizedSponsorID *uuid.UUID
		if convicted.SponsorID != nil {
			sponsorID := *convicted.SponsorID
			penalizedSponsorID = &sponsorID
			if err := tx.IncrementDemerits(sponsorID, now); err != nil {
				return err
			}
			if err := tx.AppendEvent(sponsorID, core.EventDemeritAssessed, map[string]any{
				"convicted_account_id": accountID.String(),
				"reason":               reason,
			}); err != nil {
				return err
			}
		}

		if err := tx.AppendEvent(accountID, core.EventAccountBanned, map[string]any{
			"root_convicted_account_id": accountID.String(),
			"reason":                    reason,
		}); err != nil {
			return err
		}
		for _, downstreamID := range downstreamIDs {
			if err := tx.AppendEvent(downstreamID, core.EventRevouchUpstreamBan, map[string]any{
				"root_convicted_account_id": accountID.String(),
				"reason":                    reason,
				"recovery_eligible_at":      recoveryEligibleAt,
			}); err != nil {
				return err
			}
		}

		result = &core.ConvictionResult{
			BannedRootID:       accountID,
			DownstreamIDs:      downstreamIDs,
			PenalizedSponsorID: penalizedSponsorID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExpireInactiveSponsorTrees flags the descendants of long-inactive active
// accounts as revouch_required. The inactive roots themselves are left
// untouched: a returning sponsor re-earns trust through its own activity,
// but its network's trust chain is considered stale.
//
// No cooldown applies on this path, unlike the conviction cascade. Safe to
// run periodically: only currently-active accounts are flagged, so a re-run
// is a no-op on accounts already marked.
func (s *TrustService) ExpireInactiveSponsorTrees(ctx context.Context, inactivityDays int) ([]uuid.UUID, error) {
	if inactivityDays < 1 {
		return nil, fmt.Errorf("inactivity threshold must be at least one day")
	}

	var markedIDs []uuid.UUID
	err := s.db.WithTx(ctx, func(tx core.TrustTx) error {
		now := s.now()
		cutoff := now.AddDate(0, 0, -inactivityDays)

		ids, err := tx.MarkInactiveSubtrees(cutoff, now)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.AppendEvent(id, core.EventRevouchInactiveSponsor, map[string]any{
				"inactive_days": inactivityDays,
			}); err != nil {
				return err
			}
		}
		markedIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return markedIDs, nil
}
