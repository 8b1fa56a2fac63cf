package pgx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently by Migrate. The partial unique index
// enforces one external-provider subject per provider across all accounts.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT,
	auth_provider TEXT NOT NULL,
	auth_provider_subject TEXT,
	sponsor_id UUID REFERENCES accounts(id),
	status TEXT NOT NULL DEFAULT 'active',
	demerit_count INTEGER NOT NULL DEFAULT 0 CHECK (demerit_count >= 0),
	trust_started_at TIMESTAMPTZ,
	recovery_eligible_at TIMESTAMPTZ,
	last_active_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CHECK (status IN ('active', 'revouch_required', 'banned')),
	CHECK (
		(auth_provider = 'email' AND password_hash IS NOT NULL AND auth_provider_subject IS NULL)
		OR
		(auth_provider <> 'email' AND password_hash IS NULL AND auth_provider_subject IS NOT NULL)
	)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_provider_subject
	ON accounts (auth_provider, auth_provider_subject)
	WHERE auth_provider_subject IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_accounts_sponsor_id ON accounts (sponsor_id);
CREATE INDEX IF NOT EXISTS idx_accounts_status_last_active ON accounts (status, last_active_at);

CREATE TABLE IF NOT EXISTS invite_codes (
	code TEXT PRIMARY KEY,
	sponsor_id UUID NOT NULL REFERENCES accounts(id),
	max_uses INTEGER NOT NULL CHECK (max_uses >= 1),
	uses INTEGER NOT NULL DEFAULT 0 CHECK (uses >= 0 AND uses <= max_uses),
	expires_at TIMESTAMPTZ,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_invite_codes_sponsor_id ON invite_codes (sponsor_id);

CREATE TABLE IF NOT EXISTS social_identities (
	id UUID PRIMARY KEY,
	account_id UUID NOT NULL REFERENCES accounts(id),
	provider TEXT NOT NULL,
	handle TEXT NOT NULL,
	provider_user_id TEXT NOT NULL,
	verified_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (account_id, provider),
	UNIQUE (provider, provider_user_id)
);

CREATE TABLE IF NOT EXISTS account_events (
	id UUID PRIMARY KEY,
	account_id UUID NOT NULL REFERENCES accounts(id),
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_account_events_account_id ON account_events (account_id, created_at DESC);
`

// Migrate creates the trust-ledger tables and indexes if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
