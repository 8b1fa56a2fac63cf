package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/glupper/vouch/core"
)

// plainHasher avoids argon2 cost in engine tests; hashing itself is covered
// in pkg/crypto.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }
func (plainHasher) Verify(password, hash string) (bool, error) {
	return hash == "plain:"+password, nil
}

// testClock is a settable clock shared with the service under test.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T, storage *FakeTrustStorage) (*TrustService, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	service := NewTrustService(storage, plainHasher{}, TrustConfig{
		RecoveryCooldown:    48 * time.Hour,
		MinSponsorTrustDays: 30,
		MaxSponsorDemerits:  0,
		Clock:               clock.Now,
	})
	return service, clock
}

// seedAccount stores an active password account and returns it. Tests adjust
// fields on the returned value and call storage.PutAccount to persist edits.
func seedAccount(t *testing.T, storage *FakeTrustStorage, clock *testClock, username string, sponsorID *uuid.UUID) *core.Account {
	t.Helper()
	now := clock.Now()
	hash := "plain:password"
	trustStartedAt := now
	account := &core.Account{
		ID:             uuid.New(),
		Username:       username,
		Email:          username + "@example.com",
		PasswordHash:   &hash,
		AuthProvider:   core.ProviderEmail,
		SponsorID:      sponsorID,
		Status:         core.StatusActive,
		TrustStartedAt: &trustStartedAt,
		LastActiveAt:   now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	storage.PutAccount(account)
	return account
}

// seedInvite stores an active invite for the sponsor and returns its code.
func seedInvite(t *testing.T, storage *FakeTrustStorage, clock *testClock, sponsorID uuid.UUID, maxUses int) string {
	t.Helper()
	code := "invite-" + uuid.NewString()[:8]
	storage.PutInvite(&core.InviteCode{
		Code:      code,
		SponsorID: sponsorID,
		MaxUses:   maxUses,
		Uses:      0,
		IsActive:  true,
		CreatedAt: clock.Now(),
	})
	return code
}

func daysAgo(clock *testClock, days int) time.Time {
	return clock.Now().AddDate(0, 0, -days)
}
