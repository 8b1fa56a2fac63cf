package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// TrustStorage is the durable trust ledger. Mutating operations run inside
// WithTx; the reads exposed directly are single-row lookups that need no
// transaction.
type TrustStorage interface {
	// WithTx runs fn inside one transaction. A non-nil error from fn rolls
	// the transaction back completely; no partial writes survive.
	WithTx(ctx context.Context, fn func(tx TrustTx) error) error

	GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)
	// GetAccountByLogin matches username or email.
	GetAccountByLogin(ctx context.Context, login string) (*Account, error)
	GetAccountByProviderSubject(ctx context.Context, provider AuthProvider, subject string) (*Account, error)

	ListInvitesBySponsor(ctx context.Context, sponsorID uuid.UUID) ([]*InviteCode, error)
	ListSocialIdentities(ctx context.Context, accountID uuid.UUID) ([]*SocialIdentity, error)

	// TouchLastActive updates last_active_at unconditionally; missing
	// accounts are a no-op.
	TouchLastActive(ctx context.Context, id uuid.UUID, now time.Time) error
}

// TrustTx is the set of operations available inside one storage transaction.
// Implementations must give the ForUpdate reads SELECT ... FOR UPDATE
// semantics (or an equivalent pessimistic lock) so that guard-then-write
// sequences cannot interleave.
type TrustTx interface {
	GetAccountByID(id uuid.UUID) (*Account, error)
	// GetAccountForUpdate row-locks the account until the transaction ends.
	GetAccountForUpdate(id uuid.UUID) (*Account, error)
	AccountExists(username, email string) (bool, error)
	AccountExistsByProviderSubject(provider AuthProvider, subject string) (bool, error)
	InsertAccount(account *Account) error

	// SetAccountActive flips an account to active under a new sponsor,
	// restarting its trust period and clearing any recovery cooldown.
	SetAccountActive(id, sponsorID uuid.UUID, now time.Time) (*Account, error)
	// BanAccount sets status banned and clears trust_started_at and
	// recovery_eligible_at (banned accounts never carry either).
	BanAccount(id uuid.UUID, now time.Time) error
	// MarkRevouchRequired flags every listed account that is not already
	// banned, clearing trust_started_at and setting recovery_eligible_at
	// (nil clears it).
	MarkRevouchRequired(ids []uuid.UUID, recoveryEligibleAt *time.Time, now time.Time) error
	IncrementDemerits(id uuid.UUID, now time.Time) error

	// GetInviteForUpdate row-locks the invite until the transaction ends.
	GetInviteForUpdate(code string) (*InviteCode, error)
	// ConsumeInvite increments uses and deactivates the code once exhausted.
	ConsumeInvite(code string) error
	InsertInvite(invite *InviteCode) error
	// DeactivateInvitesBySponsors force-disables every invite issued by the
	// listed sponsors, used or not.
	DeactivateInvitesBySponsors(sponsorIDs []uuid.UUID) error

	// SubtreeIDs returns the downward closure of the sponsor edge: root plus
	// every transitive invitee, each exactly once.
	SubtreeIDs(root uuid.UUID) ([]uuid.UUID, error)
	// MarkInactiveSubtrees finds active accounts whose last_active_at
	// predates cutoff, flags every currently-active descendant (excluding
	// the roots themselves) revouch_required with no cooldown, and returns
	// the flagged ids.
	MarkInactiveSubtrees(cutoff, now time.Time) ([]uuid.UUID, error)

	UpsertSocialIdentity(identity *SocialIdentity) (*SocialIdentity, error)

	AppendEvent(accountID uuid.UUID, eventType string, payload map[string]any) error
}

// ============================================
// TRUST HANDLER (for HTTP adapters)
// ============================================

// TrustHandler provides the trust-network operations for HTTP adapters.
type TrustHandler interface {
	CreateBootstrapAccount(ctx context.Context, input BootstrapInput) (*Account, error)
	RegisterViaInvite(ctx context.Context, input RegisterInput) (*Account, error)
	AuthenticatePassword(ctx context.Context, login, password string) (*Account, error)

	CreateInvite(ctx context.Context, accountID uuid.UUID, maxUses int, expiresInDays *int) (*InviteCode, error)
	ListInvites(ctx context.Context, accountID uuid.UUID) ([]*InviteCode, error)

	Revouch(ctx context.Context, accountID uuid.UUID, inviteCode string) (*Account, error)
	ConvictAndBanTree(ctx context.Context, accountID uuid.UUID, reason string) (*ConvictionResult, error)
	ExpireInactiveSponsorTrees(ctx context.Context, inactivityDays int) ([]uuid.UUID, error)

	TouchLastActive(ctx context.Context, accountID uuid.UUID) error
	GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)
	GetAccountByProviderSubject(ctx context.Context, provider AuthProvider, subject string) (*Account, error)

	LinkSocialIdentity(ctx context.Context, accountID uuid.UUID, provider, handle, providerUserID string) (*SocialIdentity, error)
	ListSocialIdentities(ctx context.Context, accountID uuid.UUID) ([]*SocialIdentity, error)
}

// BootstrapInput contains the data needed to create a root trusted account.
// Restricting who may call this is the embedding application's concern.
type BootstrapInput struct {
	Username string
	Email    string
	Password string
}

// Credential is exactly one way of proving identity: a plaintext password,
// or a provider subject already verified by an external OAuth step.
type Credential struct {
	Password        string
	Provider        AuthProvider
	ProviderSubject string
}

// RegisterInput contains the data needed to redeem an invite.
type RegisterInput struct {
	Username   string
	Email      string
	Credential Credential
	InviteCode string
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(handler TrustHandler, basePath string) error
}
