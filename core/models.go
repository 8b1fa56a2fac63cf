package core

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the trust state of an account.
//
// active          - account is in good standing and may sponsor others
// revouch_required - account must be re-vouched by a qualified sponsor
// banned          - terminal; no outbound transition
type AccountStatus string

const (
	StatusActive          AccountStatus = "active"
	StatusRevouchRequired AccountStatus = "revouch_required"
	StatusBanned          AccountStatus = "banned"
)

// AuthProvider discriminates how an account proves its identity.
type AuthProvider string

const (
	ProviderEmail  AuthProvider = "email"
	ProviderGoogle AuthProvider = "google"
	ProviderGitHub AuthProvider = "github"
)

// Account represents one human identity attempt in the trust network.
//
// Accounts form a forest via SponsorID: every non-bootstrap account points at
// the account whose invite created it. The edge is reassigned only during
// revouch and can never introduce a cycle (self-vouch is rejected and a new
// sponsor must already exist, so it cannot be a descendant created later).
type Account struct {
	ID                  uuid.UUID     `json:"id"`
	Username            string        `json:"username"`
	Email               string        `json:"email"`
	PasswordHash        *string       `json:"-"` // Never expose in JSON
	AuthProvider        AuthProvider  `json:"authProvider"`
	AuthProviderSubject *string       `json:"-"` // External subject id, never exposed
	SponsorID           *uuid.UUID    `json:"sponsorId,omitempty"`
	Status              AccountStatus `json:"status"`
	DemeritCount        int           `json:"demeritCount"`
	TrustStartedAt      *time.Time    `json:"trustStartedAt,omitempty"`
	RecoveryEligibleAt  *time.Time    `json:"recoveryEligibleAt,omitempty"`
	LastActiveAt        time.Time     `json:"lastActiveAt"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// TrustDays returns the whole days the account has held its current active
// trust period, or 0 if trust never started.
func (a *Account) TrustDays(now time.Time) int {
	if a.TrustStartedAt == nil {
		return 0
	}
	days := int(now.Sub(*a.TrustStartedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// InviteCode is a capability to create (or re-vouch) accounts, bounded by
// MaxUses and an optional deadline.
type InviteCode struct {
	Code      string     `json:"code"`
	SponsorID uuid.UUID  `json:"sponsorId"`
	MaxUses   int        `json:"maxUses"`
	Uses      int        `json:"uses"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
}

// SocialIdentity is one verified external-provider linkage. Unique per
// (account, provider) and globally per (provider, provider user id).
type SocialIdentity struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"accountId"`
	Provider       string    `json:"provider"`
	Handle         string    `json:"handle"`
	ProviderUserID string    `json:"providerUserId"`
	VerifiedAt     time.Time `json:"verifiedAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AccountEvent is one append-only audit record. The engine writes events but
// never reads them back.
type AccountEvent struct {
	ID        uuid.UUID      `json:"id"`
	AccountID uuid.UUID      `json:"accountId"`
	EventType string         `json:"eventType"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Event types appended by the engines.
const (
	EventBootstrapAccount       = "bootstrap_account"
	EventRegisteredWithPassword = "registered_with_password"
	EventRegisteredWithGoogle   = "registered_with_google"
	EventRegisteredWithGitHub   = "registered_with_github"
	EventInviteCreated          = "invite_created"
	EventRevouched              = "revouched"
	EventAccountBanned          = "account_banned"
	EventDemeritAssessed        = "demerit_assessed"
	EventRevouchUpstreamBan     = "revouch_required_due_to_upstream_ban"
	EventRevouchInactiveSponsor = "revouch_required_due_to_inactive_sponsor"
	EventSocialIdentityLinked   = "social_identity_linked"
)

// ConvictionResult reports what a conviction changed so callers can update
// derived views such as an external ban cache.
type ConvictionResult struct {
	BannedRootID       uuid.UUID   `json:"bannedRootId"`
	DownstreamIDs      []uuid.UUID `json:"downstreamIds"`
	PenalizedSponsorID *uuid.UUID  `json:"penalizedSponsorId,omitempty"`
}
