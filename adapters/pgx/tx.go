package pgx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/glupper/vouch/core"
)

// trustTx implements core.TrustTx over one pgx transaction.
type trustTx struct {
	ctx context.Context
	tx  pgx.Tx
}

var _ core.TrustTx = (*trustTx)(nil)

func (t *trustTx) GetAccountByID(id uuid.UUID) (*core.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(t.tx.QueryRow(t.ctx, q, id))
}

func (t *trustTx) GetAccountForUpdate(id uuid.UUID) (*core.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(t.tx.QueryRow(t.ctx, q, id))
}

func (t *trustTx) AccountExists(username, email string) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1 OR email = $2)`
	var exists bool
	if err := t.tx.QueryRow(t.ctx, q, username, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (t *trustTx) AccountExistsByProviderSubject(provider core.AuthProvider, subject string) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM accounts WHERE auth_provider = $1 AND auth_provider_subject = $2)`
	var exists bool
	if err := t.tx.QueryRow(t.ctx, q, string(provider), subject).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (t *trustTx) InsertAccount(account *core.Account) error {
	q := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := t.tx.Exec(t.ctx, q,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		string(account.AuthProvider),
		account.AuthProviderSubject,
		account.SponsorID,
		string(account.Status),
		account.DemeritCount,
		account.TrustStartedAt,
		account.RecoveryEligibleAt,
		account.LastActiveAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		// Lost race against a concurrent insert of the same username,
		// email, or provider subject.
		if isUniqueViolation(err) {
			return core.ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func (t *trustTx) SetAccountActive(id, sponsorID uuid.UUID, now time.Time) (*core.Account, error) {
	q := `UPDATE accounts
		SET sponsor_id = $1,
			status = 'active',
			trust_started_at = $2,
			recovery_eligible_at = NULL,
			updated_at = $2
		WHERE id = $3
		RETURNING ` + accountColumns

	return scanAccount(t.tx.QueryRow(t.ctx, q, sponsorID, now, id))
}

func (t *trustTx) BanAccount(id uuid.UUID, now time.Time) error {
	q := `UPDATE accounts
		SET status = 'banned',
			trust_started_at = NULL,
			recovery_eligible_at = NULL,
			updated_at = $2
		WHERE id = $1`

	tag, err := t.tx.Exec(t.ctx, q, id, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

func (t *trustTx) MarkRevouchRequired(ids []uuid.UUID, recoveryEligibleAt *time.Time, now time.Time) error {
	// Banned is terminal; never downgrade it to revouch_required.
	q := `UPDATE accounts
		SET status = 'revouch_required',
			trust_started_at = NULL,
			recovery_eligible_at = $2,
			updated_at = $3
		WHERE id = ANY($1) AND status != 'banned'`

	_, err := t.tx.Exec(t.ctx, q, ids, recoveryEligibleAt, now)
	return err
}

func (t *trustTx) IncrementDemerits(id uuid.UUID, now time.Time) error {
	q := `UPDATE accounts SET demerit_count = demerit_count + 1, updated_at = $2 WHERE id = $1`
	tag, err := t.tx.Exec(t.ctx, q, id, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

func (t *trustTx) GetInviteForUpdate(code string) (*core.InviteCode, error) {
	q := `SELECT code, sponsor_id, max_uses, uses, expires_at, is_active, created_at
		FROM invite_codes
		WHERE code = $1
		FOR UPDATE`

	invite := &core.InviteCode{}
	err := t.tx.QueryRow(t.ctx, q, code).Scan(&invite.Code, &invite.SponsorID, &invite.MaxUses,
		&invite.Uses, &invite.ExpiresAt, &invite.IsActive, &invite.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, core.ErrInvalidInviteCode
		}
		return nil, err
	}
	return invite, nil
}

func (t *trustTx) ConsumeInvite(code string) error {
	q := `UPDATE invite_codes
		SET uses = uses + 1,
			is_active = CASE WHEN uses + 1 >= max_uses THEN FALSE ELSE is_active END
		WHERE code = $1`

	tag, err := t.tx.Exec(t.ctx, q, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrInvalidInviteCode
	}
	return nil
}

func (t *trustTx) InsertInvite(invite *core.InviteCode) error {
	q := `INSERT INTO invite_codes (code, sponsor_id, max_uses, uses, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := t.tx.Exec(t.ctx, q, invite.Code, invite.SponsorID, invite.MaxUses,
		invite.Uses, invite.ExpiresAt, invite.IsActive, invite.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrDuplicateInviteCode
		}
		return err
	}
	return nil
}

func (t *trustTx) DeactivateInvitesBySponsors(sponsorIDs []uuid.UUID) error {
	q := `UPDATE invite_codes SET is_active = FALSE WHERE sponsor_id = ANY($1)`
	_, err := t.tx.Exec(t.ctx, q, sponsorIDs)
	return err
}

// SubtreeIDs computes the downward closure of the sponsor edge in one
// recursive CTE. Termination is guaranteed by the forest invariant: sponsor
// chains are acyclic, so each row joins in at most once.
func (t *trustTx) SubtreeIDs(root uuid.UUID) ([]uuid.UUID, error) {
	q := `WITH RECURSIVE referral_tree AS (
			SELECT id, sponsor_id
			FROM accounts
			WHERE id = $1
			UNION ALL
			SELECT child.id, child.sponsor_id
			FROM accounts child
			INNER JOIN referral_tree parent ON child.sponsor_id = parent.id
		)
		SELECT id FROM referral_tree`

	rows, err := t.tx.Query(t.ctx, q, root)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkInactiveSubtrees finds inactive roots, walks their descendants, and
// flags the currently-active ones in a single statement so the read and the
// bulk update share one snapshot.
func (t *trustTx) MarkInactiveSubtrees(cutoff, now time.Time) ([]uuid.UUID, error) {
	q := `WITH RECURSIVE inactive_roots AS (
			SELECT id
			FROM accounts
			WHERE status = 'active' AND last_active_at < $1
		),
		affected AS (
			SELECT child.id
			FROM accounts child
			INNER JOIN inactive_roots root ON child.sponsor_id = root.id
			UNION
			SELECT grandchild.id
			FROM accounts grandchild
			INNER JOIN affected parent ON grandchild.sponsor_id = parent.id
		),
		updated AS (
			UPDATE accounts
			SET status = 'revouch_required',
				trust_started_at = NULL,
				recovery_eligible_at = NULL,
				updated_at = $2
			WHERE id IN (SELECT id FROM affected) AND status = 'active'
			RETURNING id
		)
		SELECT id FROM updated`

	rows, err := t.tx.Query(t.ctx, q, cutoff, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *trustTx) UpsertSocialIdentity(identity *core.SocialIdentity) (*core.SocialIdentity, error) {
	q := `INSERT INTO social_identities (id, account_id, provider, handle, provider_user_id, verified_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, provider)
		DO UPDATE SET
			handle = EXCLUDED.handle,
			provider_user_id = EXCLUDED.provider_user_id,
			verified_at = EXCLUDED.verified_at
		RETURNING id, account_id, provider, handle, provider_user_id, verified_at, created_at`

	linked := &core.SocialIdentity{}
	err := t.tx.QueryRow(t.ctx, q, identity.ID, identity.AccountID, identity.Provider,
		identity.Handle, identity.ProviderUserID, identity.VerifiedAt, identity.CreatedAt).
		Scan(&linked.ID, &linked.AccountID, &linked.Provider, &linked.Handle,
			&linked.ProviderUserID, &linked.VerifiedAt, &linked.CreatedAt)
	if err != nil {
		// The global (provider, provider_user_id) index is not the conflict
		// target, so reusing another account's identity lands here.
		if isUniqueViolation(err) {
			return nil, core.ErrDuplicateSocialIdent
		}
		return nil, err
	}
	return linked, nil
}

func (t *trustTx) AppendEvent(accountID uuid.UUID, eventType string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}

	q := `INSERT INTO account_events (id, account_id, event_type, payload) VALUES ($1, $2, $3, $4)`
	_, err = t.tx.Exec(t.ctx, q, uuid.New(), accountID, eventType, body)
	return err
}
