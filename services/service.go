package services

import (
	"time"

	"github.com/glupper/vouch/core"
	"github.com/glupper/vouch/pkg/crypto"
)

// Tuning defaults. The policy knobs live on TrustConfig so embedding
// applications can override them.
const (
	defaultRecoveryCooldown    = 48 * time.Hour
	defaultMinSponsorTrustDays = 30
	defaultMaxSponsorDemerits  = 0

	inviteInsertAttempts = 3
)

// TrustConfig tunes the recovery and sponsorship rules.
type TrustConfig struct {
	// RecoveryCooldown is how long conviction-cascade victims must wait
	// before attempting revouch.
	RecoveryCooldown time.Duration
	// MinSponsorTrustDays is the minimum trust age a recovery sponsor needs.
	MinSponsorTrustDays int
	// MaxSponsorDemerits is the most demerits a recovery sponsor may carry.
	MaxSponsorDemerits int
	// Clock supplies the current time; defaults to time.Now.
	Clock func() time.Time
}

// TrustService implements the trust-graph state machine over a TrustStorage.
type TrustService struct {
	db        core.TrustStorage
	passwords crypto.PasswordHandler
	now       func() time.Time

	recoveryCooldown    time.Duration
	minSponsorTrustDays int
	maxSponsorDemerits  int
}

// Ensure TrustService implements TrustHandler
var _ core.TrustHandler = (*TrustService)(nil)

func NewTrustService(db core.TrustStorage, passwords crypto.PasswordHandler, config TrustConfig) *TrustService {
	if passwords == nil {
		passwords = crypto.NewArgon2()
	}
	if config.RecoveryCooldown == 0 {
		config.RecoveryCooldown = defaultRecoveryCooldown
	}
	if config.MinSponsorTrustDays == 0 {
		config.MinSponsorTrustDays = defaultMinSponsorTrustDays
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &TrustService{
		db:                  db,
		passwords:           passwords,
		now:                 config.Clock,
		recoveryCooldown:    config.RecoveryCooldown,
		minSponsorTrustDays: config.MinSponsorTrustDays,
		maxSponsorDemerits:  config.MaxSponsorDemerits,
	}
}
