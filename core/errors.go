package core

import "errors"

// Trust-graph errors
var (
	// Message intentionally does not say whether username or email collided,
	// to avoid account enumeration.
	ErrDuplicateAccount = errors.New("account already exists") // 409 Conflict

	ErrInvalidInviteCode    = errors.New("invalid invite code")    // 400 Bad Request
	ErrInvalidCredentials   = errors.New("invalid credentials")    // 401 Unauthorized
	ErrAccountNotFound      = errors.New("account not found")      // 404 Not Found
	ErrInvalidAccountState  = errors.New("invalid account state")  // 403 Forbidden
	ErrDuplicateInviteCode  = errors.New("invite code collision")  // retried internally
	ErrDuplicateSocialIdent = errors.New("social identity in use") // 409 Conflict
)

// Validation errors (client input)
var (
	ErrUsernameRequired     = errors.New("username is required") // 400
	ErrEmailRequired        = errors.New("email is required")    // 400
	ErrPasswordRequired     = errors.New("password is required") // 400
	ErrInvalidMaxUses       = errors.New("max uses must be at least 1")
	ErrInvalidCredentialMix = errors.New("credential must be exactly one of password or provider subject")
)

// Config errors (server-side configuration)
var (
	ErrStorageRequired = errors.New("storage adapter is required") // 500
	ErrBadCooldown     = errors.New("recovery cooldown must not be negative")
	ErrBadSponsorBar   = errors.New("sponsor quality thresholds must not be negative")
)
