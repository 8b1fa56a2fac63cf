package vouch

import (
	"github.com/glupper/vouch/core"
	"github.com/glupper/vouch/pkg/crypto"
	"github.com/glupper/vouch/services"
)

// interfaces
type (
	TrustStorage = core.TrustStorage
	TrustTx      = core.TrustTx
	TrustHandler = core.TrustHandler

	HTTPAdapter = core.HTTPAdapter

	PasswordHandler = crypto.PasswordHandler
)

// structs
type (
	Service     = services.TrustService
	TrustConfig = services.TrustConfig
)

type (
	Account          = core.Account
	InviteCode       = core.InviteCode
	SocialIdentity   = core.SocialIdentity
	AccountEvent     = core.AccountEvent
	ConvictionResult = core.ConvictionResult

	BootstrapInput = core.BootstrapInput
	RegisterInput  = core.RegisterInput
	Credential     = core.Credential

	AccountStatus = core.AccountStatus
	AuthProvider  = core.AuthProvider
)

const (
	StatusActive          = core.StatusActive
	StatusRevouchRequired = core.StatusRevouchRequired
	StatusBanned          = core.StatusBanned

	ProviderEmail  = core.ProviderEmail
	ProviderGoogle = core.ProviderGoogle
	ProviderGitHub = core.ProviderGitHub
)

const defaultBasePath = "/api/trust"

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2           = crypto.NewArgon2
	GenerateInviteCode  = crypto.GenerateInviteCode
	NewFakeTrustStorage = services.NewFakeTrustStorage
)

var (
	ErrDuplicateAccount     = core.ErrDuplicateAccount
	ErrInvalidInviteCode    = core.ErrInvalidInviteCode
	ErrInvalidCredentials   = core.ErrInvalidCredentials
	ErrAccountNotFound      = core.ErrAccountNotFound
	ErrInvalidAccountState  = core.ErrInvalidAccountState
	ErrDuplicateSocialIdent = core.ErrDuplicateSocialIdent
)

var (
	ErrUsernameRequired     = core.ErrUsernameRequired
	ErrEmailRequired        = core.ErrEmailRequired
	ErrPasswordRequired     = core.ErrPasswordRequired
	ErrInvalidMaxUses       = core.ErrInvalidMaxUses
	ErrInvalidCredentialMix = core.ErrInvalidCredentialMix
)

var (
	ErrStorageRequired = core.ErrStorageRequired
	ErrBadCooldown     = core.ErrBadCooldown
	ErrBadSponsorBar   = core.ErrBadSponsorBar
)

// Config wires the trust engine to its collaborators.
type Config struct {
	Database TrustStorage

	// Optional config
	HTTP           HTTPAdapter
	PasswordHasher PasswordHandler
	BasePath       string
	Trust          TrustConfig
}

func New(config Config) (*Service, error) {
	if config.Database == nil {
		return nil, ErrStorageRequired
	}
	if config.Trust.RecoveryCooldown < 0 {
		return nil, ErrBadCooldown
	}
	if config.Trust.MinSponsorTrustDays < 0 || config.Trust.MaxSponsorDemerits < 0 {
		return nil, ErrBadSponsorBar
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	service := services.NewTrustService(config.Database, config.PasswordHasher, config.Trust)

	if config.HTTP != nil {
		if err := config.HTTP.RegisterRoutes(service, basePath); err != nil {
			return nil, err
		}
	}

	return service, nil
}
