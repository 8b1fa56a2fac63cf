package pgx

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/glupper/vouch/core"
)

const accountColumns = `id, username, email, password_hash, auth_provider, auth_provider_subject,
	sponsor_id, status, demerit_count, trust_started_at, recovery_eligible_at,
	last_active_at, created_at, updated_at`

func (a *Adapter) GetAccountByID(ctx context.Context, id uuid.UUID) (*core.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(a.pool.QueryRow(ctx, q, id))
}

func (a *Adapter) GetAccountByUsername(ctx context.Context, username string) (*core.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccount(a.pool.QueryRow(ctx, q, username))
}

func (a *Adapter) GetAccountByLogin(ctx context.Context, login string) (*core.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1 OR email = $1`
	return scanAccount(a.pool.QueryRow(ctx, q, login))
}

func (a *Adapter) GetAccountByProviderSubject(ctx context.Context, provider core.AuthProvider, subject string) (*core.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE auth_provider = $1 AND auth_provider_subject = $2`
	return scanAccount(a.pool.QueryRow(ctx, q, string(provider), subject))
}

func (a *Adapter) ListInvitesBySponsor(ctx context.Context, sponsorID uuid.UUID) ([]*core.InviteCode, error) {
	q := `SELECT code, sponsor_id, max_uses, uses, expires_at, is_active, created_at
		FROM invite_codes
		WHERE sponsor_id = $1
		ORDER BY created_at DESC`

	rows, err := a.pool.Query(ctx, q, sponsorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invites := make([]*core.InviteCode, 0)
	for rows.Next() {
		invite := &core.InviteCode{}
		if err := rows.Scan(&invite.Code, &invite.SponsorID, &invite.MaxUses, &invite.Uses,
			&invite.ExpiresAt, &invite.IsActive, &invite.CreatedAt); err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

func (a *Adapter) ListSocialIdentities(ctx context.Context, accountID uuid.UUID) ([]*core.SocialIdentity, error) {
	q := `SELECT id, account_id, provider, handle, provider_user_id, verified_at, created_at
		FROM social_identities
		WHERE account_id = $1
		ORDER BY created_at DESC`

	rows, err := a.pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	identities := make([]*core.SocialIdentity, 0)
	for rows.Next() {
		ident := &core.SocialIdentity{}
		if err := rows.Scan(&ident.ID, &ident.AccountID, &ident.Provider, &ident.Handle,
			&ident.ProviderUserID, &ident.VerifiedAt, &ident.CreatedAt); err != nil {
			return nil, err
		}
		identities = append(identities, ident)
	}
	return identities, rows.Err()
}

func (a *Adapter) TouchLastActive(ctx context.Context, id uuid.UUID, now time.Time) error {
	q := `UPDATE accounts SET last_active_at = $2, updated_at = $2 WHERE id = $1`
	_, err := a.pool.Exec(ctx, q, id, now)
	return err
}

func scanAccount(row pgx.Row) (*core.Account, error) {
	account := &core.Account{}
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.AuthProvider,
		&account.AuthProviderSubject,
		&account.SponsorID,
		&account.Status,
		&account.DemeritCount,
		&account.TrustStartedAt,
		&account.RecoveryEligibleAt,
		&account.LastActiveAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, core.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}
