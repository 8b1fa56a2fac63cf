package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/glupper/vouch/core"
)

// CreateBootstrapAccount creates an initial trusted account without an invite
// code. Restricting this to administrators is the caller's concern.
func (s *TrustService) CreateBootstrapAccount(ctx context.Context, input core.BootstrapInput) (*core.Account, error) {
	if input.Username == "" {
		return nil, core.ErrUsernameRequired
	}
	if input.Email == "" {
		return nil, core.ErrEmailRequired
	}
	if input.Password == "" {
		return nil, core.ErrPasswordRequired
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var account *core.Account
	err = s.db.WithTx(ctx, func(tx core.TrustTx) error {
		if err := s.ensureUniqueAccount(tx, input.Username, input.Email); err != nil {
			return err
		}

		account = s.newAccount(input.Username, input.Email, &hash, core.ProviderEmail, nil, nil)
		if err := tx.InsertAccount(account); err != nil {
			return err
		}

		return tx.AppendEvent(account.ID, core.EventBootstrapAccount, map[string]any{
			"username": input.Username,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// RegisterViaInvite creates an account by consuming one use of an invite
// code. The whole sequence - consume invite, verify sponsor, check
// uniqueness, insert account - runs in a single transaction; any guard
// failure rolls everything back, so a consumed invite without a matching
// account is never observable.
func (s *TrustService) RegisterViaInvite(ctx context.Context, input core.RegisterInput) (*core.Account, error) {
	if input.Username == "" {
		return nil, core.ErrUsernameRequired
	}
	if input.Email == "" {
		return nil, core.ErrEmailRequired
	}

	credential := input.Credential
	hasPassword := credential.Password != ""
	hasSubject := credential.ProviderSubject != ""
	if hasPassword == hasSubject {
		return nil, core.ErrInvalidCredentialMix
	}

	provider := core.ProviderEmail
	var passwordHash *string
	var providerSubject *string
	if hasPassword {
		hash, err := s.passwords.Hash(credential.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = &hash
	} else {
		if credential.Provider != core.ProviderGoogle && credential.Provider != core.ProviderGitHub {
			return nil, core.ErrInvalidCredentialMix
		}
		provider = credential.Provider
		subject := credential.ProviderSubject
		providerSubject = &subject
	}

	var account *core.Account
	err := s.db.WithTx(ctx, func(tx core.TrustTx) error {
		invite, err := s.consumeInvite(tx, input.InviteCode)
		if err != nil {
			return err
		}

		if _, err := s.ensureActiveSponsor(tx, invite.SponsorID); err != nil {
			return err
		}

		if err := s.ensureUniqueAccount(tx, input.Username, input.Email); err != nil {
			return err
		}
		if providerSubject != nil {
			taken, err := tx.AccountExistsByProviderSubject(provider, *providerSubject)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: provider subject already registered", core.ErrDuplicateAccount)
			}
		}

		sponsorID := invite.SponsorID
		account = s.newAccount(input.Username, input.Email, passwordHash, provider, providerSubject, &sponsorID)
		if err := tx.InsertAccount(account); err != nil {
			return err
		}

		return tx.AppendEvent(account.ID, registrationEvent(provider), map[string]any{
			"sponsor_id": sponsorID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// AuthenticatePassword authenticates a password account by username or email.
func (s *TrustService) AuthenticatePassword(ctx context.Context, login, password string) (*core.Account, error) {
	account, err := s.db.GetAccountByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: unknown username or email", core.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if account.PasswordHash == nil {
		return nil, fmt.Errorf("%w: account does not use password authentication", core.ErrInvalidCredentials)
	}

	ok, err := s.passwords.Verify(password, *account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: password does not match", core.ErrInvalidCredentials)
	}
	return account, nil
}

// TouchLastActive records an activity heartbeat. No status transition.
func (s *TrustService) TouchLastActive(ctx context.Context, accountID uuid.UUID) error {
	return s.db.TouchLastActive(ctx, accountID, s.now())
}

func (s *TrustService) GetAccountByID(ctx context.Context, id uuid.UUID) (*core.Account, error) {
	return s.db.GetAccountByID(ctx, id)
}

func (s *TrustService) GetAccountByUsername(ctx context.Context, username string) (*core.Account, error) {
	return s.db.GetAccountByUsername(ctx, username)
}

func (s *TrustService) GetAccountByProviderSubject(ctx context.Context, provider core.AuthProvider, subject string) (*core.Account, error) {
	return s.db.GetAccountByProviderSubject(ctx, provider, subject)
}

// LinkSocialIdentity upserts one verified social identity for an account.
func (s *TrustService) LinkSocialIdentity(ctx context.Context, accountID uuid.UUID, provider, handle, providerUserID string) (*core.SocialIdentity, error) {
	account, err := s.db.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status == core.StatusBanned {
		return nil, fmt.Errorf("%w: banned accounts cannot link social identities", core.ErrInvalidAccountState)
	}

	identity := &core.SocialIdentity{
		ID:             uuid.New(),
		AccountID:      accountID,
		Provider:       strings.ToLower(strings.TrimSpace(provider)),
		Handle:         strings.TrimSpace(handle),
		ProviderUserID: strings.TrimSpace(providerUserID),
		VerifiedAt:     s.now(),
		CreatedAt:      s.now(),
	}

	var linked *core.SocialIdentity
	err = s.db.WithTx(ctx, func(tx core.TrustTx) error {
		linked, err = tx.UpsertSocialIdentity(identity)
		if err != nil {
			return err
		}
		return tx.AppendEvent(accountID, core.EventSocialIdentityLinked, map[string]any{
			"provider":         identity.Provider,
			"handle":           identity.Handle,
			"provider_user_id": identity.ProviderUserID,
		})
	})
	if err != nil {
		return nil, err
	}
	return linked, nil
}

func (s *TrustService) ListSocialIdentities(ctx context.Context, accountID uuid.UUID) ([]*core.SocialIdentity, error) {
	return s.db.ListSocialIdentities(ctx, accountID)
}

func (s *TrustService) newAccount(username, email string, passwordHash *string, provider core.AuthProvider, providerSubject *string, sponsorID *uuid.UUID) *core.Account {
	now := s.now()
	trustStartedAt := now
	return &core.Account{
		ID:                  uuid.New(),
		Username:            username,
		Email:               email,
		PasswordHash:        passwordHash,
		AuthProvider:        provider,
		AuthProviderSubject: providerSubject,
		SponsorID:           sponsorID,
		Status:              core.StatusActive,
		DemeritCount:        0,
		TrustStartedAt:      &trustStartedAt,
		LastActiveAt:        now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (s *TrustService) ensureUniqueAccount(tx core.TrustTx, username, email string) error {
	taken, err := tx.AccountExists(username, email)
	if err != nil {
		return err
	}
	if taken {
		// Deliberately vague: do not reveal whether the username or the
		// email collided.
		return core.ErrDuplicateAccount
	}
	return nil
}

// ensureActiveSponsor re-checks the sponsor at redemption time; sponsor
// inactivity or a ban after issuance invalidates outstanding invites.
func (s *TrustService) ensureActiveSponsor(tx core.TrustTx, sponsorID uuid.UUID) (*core.Account, error) {
	sponsor, err := tx.GetAccountByID(sponsorID)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: sponsor account not found", core.ErrInvalidInviteCode)
		}
		return nil, err
	}
	if sponsor.Status != core.StatusActive {
		return nil, fmt.Errorf("%w: sponsor is not active", core.ErrInvalidInviteCode)
	}
	return sponsor, nil
}

// consumeInvite locks the invite row, validates it, and spends one use.
// The row lock is what makes concurrent redemptions sum to at most MaxUses.
func (s *TrustService) consumeInvite(tx core.TrustTx, code string) (*core.InviteCode, error) {
	invite, err := tx.GetInviteForUpdate(strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, core.ErrInvalidInviteCode) {
			return nil, fmt.Errorf("%w: code does not exist", core.ErrInvalidInviteCode)
		}
		return nil, err
	}

	now := s.now()
	if !invite.IsActive {
		return nil, fmt.Errorf("%w: code is inactive", core.ErrInvalidInviteCode)
	}
	if invite.ExpiresAt != nil && invite.ExpiresAt.Before(now) {
		return nil, fmt.Errorf("%w: code has expired", core.ErrInvalidInviteCode)
	}
	if invite.Uses >= invite.MaxUses {
		return nil, fmt.Errorf("%w: code is fully used", core.ErrInvalidInviteCode)
	}

	if err := tx.ConsumeInvite(invite.Code); err != nil {
		return nil, err
	}
	return invite, nil
}

func registrationEvent(provider core.AuthProvider) string {
	switch provider {
	case core.ProviderGoogle:
		return core.EventRegisteredWithGoogle
	case core.ProviderGitHub:
		return core.EventRegisteredWithGitHub
	default:
		return core.EventRegisteredWithPassword
	}
}
