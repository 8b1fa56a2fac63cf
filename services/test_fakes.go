package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glupper/vouch/core"
)

// FakeTrustStorage is a test-only fake implementing core.TrustStorage.
// WithTx holds one mutex for the whole transaction, so transactions are
// serializable, and restores a snapshot on rollback. Error fields allow
// behavior injection.
type FakeTrustStorage struct {
	mu         sync.Mutex
	accounts   map[uuid.UUID]*core.Account
	invites    map[string]*core.InviteCode
	identities map[uuid.UUID]*core.SocialIdentity
	events     []*core.AccountEvent

	txErr  error
	getErr error
}

func NewFakeTrustStorage() *FakeTrustStorage {
	return &FakeTrustStorage{
		accounts:   make(map[uuid.UUID]*core.Account),
		invites:    make(map[string]*core.InviteCode),
		identities: make(map[uuid.UUID]*core.SocialIdentity),
	}
}

var _ core.TrustStorage = (*FakeTrustStorage)(nil)

func (f *FakeTrustStorage) WithTx(ctx context.Context, fn func(tx core.TrustTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.txErr != nil {
		return f.txErr
	}

	snapshot := f.snapshot()
	if err := fn(&fakeTrustTx{storage: f}); err != nil {
		f.restore(snapshot)
		return err
	}
	return nil
}

func (f *FakeTrustStorage) GetAccountByID(ctx context.Context, id uuid.UUID) (*core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.accountByID(id)
}

func (f *FakeTrustStorage) GetAccountByUsername(ctx context.Context, username string) (*core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Username == username {
			return cloneAccount(a), nil
		}
	}
	return nil, core.ErrAccountNotFound
}

func (f *FakeTrustStorage) GetAccountByLogin(ctx context.Context, login string) (*core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Username == login || a.Email == login {
			return cloneAccount(a), nil
		}
	}
	return nil, core.ErrAccountNotFound
}

func (f *FakeTrustStorage) GetAccountByProviderSubject(ctx context.Context, provider core.AuthProvider, subject string) (*core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.AuthProvider == provider && a.AuthProviderSubject != nil && *a.AuthProviderSubject == subject {
			return cloneAccount(a), nil
		}
	}
	return nil, core.ErrAccountNotFound
}

func (f *FakeTrustStorage) ListInvitesBySponsor(ctx context.Context, sponsorID uuid.UUID) ([]*core.InviteCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*core.InviteCode, 0)
	for _, inv := range f.invites {
		if inv.SponsorID == sponsorID {
			out = append(out, cloneInvite(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *FakeTrustStorage) ListSocialIdentities(ctx context.Context, accountID uuid.UUID) ([]*core.SocialIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*core.SocialIdentity, 0)
	for _, ident := range f.identities {
		if ident.AccountID == accountID {
			clone := *ident
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *FakeTrustStorage) TouchLastActive(ctx context.Context, id uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		a.LastActiveAt = now
		a.UpdatedAt = now
	}
	return nil
}

// Test helpers

// PutAccount seeds or overwrites an account directly, bypassing the engine.
func (f *FakeTrustStorage) PutAccount(account *core.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[account.ID] = cloneAccount(account)
}

// PutInvite seeds or overwrites an invite directly, bypassing the engine.
func (f *FakeTrustStorage) PutInvite(invite *core.InviteCode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites[invite.Code] = cloneInvite(invite)
}

// Account returns the stored account, or nil.
func (f *FakeTrustStorage) Account(id uuid.UUID) *core.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		return cloneAccount(a)
	}
	return nil
}

// Invite returns the stored invite, or nil.
func (f *FakeTrustStorage) Invite(code string) *core.InviteCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv, ok := f.invites[code]; ok {
		return cloneInvite(inv)
	}
	return nil
}

// Events returns all appended events in order.
func (f *FakeTrustStorage) Events() []*core.AccountEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*core.AccountEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *FakeTrustStorage) snapshot() *FakeTrustStorage {
	snap := NewFakeTrustStorage()
	for id, a := range f.accounts {
		snap.accounts[id] = cloneAccount(a)
	}
	for code, inv := range f.invites {
		snap.invites[code] = cloneInvite(inv)
	}
	for id, ident := range f.identities {
		clone := *ident
		snap.identities[id] = &clone
	}
	snap.events = append(snap.events, f.events...)
	return snap
}

func (f *FakeTrustStorage) restore(snap *FakeTrustStorage) {
	f.accounts = snap.accounts
	f.invites = snap.invites
	f.identities = snap.identities
	f.events = snap.events
}

func (f *FakeTrustStorage) accountByID(id uuid.UUID) (*core.Account, error) {
	if a, ok := f.accounts[id]; ok {
		return cloneAccount(a), nil
	}
	return nil, core.ErrAccountNotFound
}

// fakeTrustTx operates on the fake's maps while WithTx holds the mutex.
type fakeTrustTx struct {
	storage *FakeTrustStorage
}

var _ core.TrustTx = (*fakeTrustTx)(nil)

func (t *fakeTrustTx) GetAccountByID(id uuid.UUID) (*core.Account, error) {
	return t.storage.accountByID(id)
}

func (t *fakeTrustTx) GetAccountForUpdate(id uuid.UUID) (*core.Account, error) {
	// Transactions are serialized on the storage mutex, so the plain read
	// already has lock semantics here.
	return t.storage.accountByID(id)
}

func (t *fakeTrustTx) AccountExists(username, email string) (bool, error) {
	for _, a := range t.storage.accounts {
		if a.Username == username || a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTrustTx) AccountExistsByProviderSubject(provider core.AuthProvider, subject string) (bool, error) {
	for _, a := range t.storage.accounts {
		if a.AuthProvider == provider && a.AuthProviderSubject != nil && *a.AuthProviderSubject == subject {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTrustTx) InsertAccount(account *core.Account) error {
	t.storage.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (t *fakeTrustTx) SetAccountActive(id, sponsorID uuid.UUID, now time.Time) (*core.Account, error) {
	a, ok := t.storage.accounts[id]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	sponsor := sponsorID
	trustStartedAt := now
	a.Status = core.StatusActive
	a.SponsorID = &sponsor
	a.TrustStartedAt = &trustStartedAt
	a.RecoveryEligibleAt = nil
	a.UpdatedAt = now
	return cloneAccount(a), nil
}

func (t *fakeTrustTx) BanAccount(id uuid.UUID, now time.Time) error {
	a, ok := t.storage.accounts[id]
	if !ok {
		return core.ErrAccountNotFound
	}
	a.Status = core.StatusBanned
	a.TrustStartedAt = nil
	a.RecoveryEligibleAt = nil
	a.UpdatedAt = now
	return nil
}

func (t *fakeTrustTx) MarkRevouchRequired(ids []uuid.UUID, recoveryEligibleAt *time.Time, now time.Time) error {
	for _, id := range ids {
		a, ok := t.storage.accounts[id]
		if !ok || a.Status == core.StatusBanned {
			continue
		}
		a.Status = core.StatusRevouchRequired
		a.TrustStartedAt = nil
		if recoveryEligibleAt != nil {
			eligible := *recoveryEligibleAt
			a.RecoveryEligibleAt = &eligible
		} else {
			a.RecoveryEligibleAt = nil
		}
		a.UpdatedAt = now
	}
	return nil
}

func (t *fakeTrustTx) IncrementDemerits(id uuid.UUID, now time.Time) error {
	a, ok := t.storage.accounts[id]
	if !ok {
		return core.ErrAccountNotFound
	}
	a.DemeritCount++
	a.UpdatedAt = now
	return nil
}

func (t *fakeTrustTx) GetInviteForUpdate(code string) (*core.InviteCode, error) {
	if inv, ok := t.storage.invites[code]; ok {
		return cloneInvite(inv), nil
	}
	return nil, core.ErrInvalidInviteCode
}

func (t *fakeTrustTx) ConsumeInvite(code string) error {
	inv, ok := t.storage.invites[code]
	if !ok {
		return core.ErrInvalidInviteCode
	}
	inv.Uses++
	if inv.Uses >= inv.MaxUses {
		inv.IsActive = false
	}
	return nil
}

func (t *fakeTrustTx) InsertInvite(invite *core.InviteCode) error {
	if _, ok := t.storage.invites[invite.Code]; ok {
		return core.ErrDuplicateInviteCode
	}
	t.storage.invites[invite.Code] = cloneInvite(invite)
	return nil
}

func (t *fakeTrustTx) DeactivateInvitesBySponsors(sponsorIDs []uuid.UUID) error {
	sponsors := make(map[uuid.UUID]struct{}, len(sponsorIDs))
	for _, id := range sponsorIDs {
		sponsors[id] = struct{}{}
	}
	for _, inv := range t.storage.invites {
		if _, ok := sponsors[inv.SponsorID]; ok {
			inv.IsActive = false
		}
	}
	return nil
}

func (t *fakeTrustTx) SubtreeIDs(root uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{root}
	seen := map[uuid.UUID]struct{}{root: {}}
	for frontier := []uuid.UUID{root}; len(frontier) > 0; {
		var next []uuid.UUID
		for _, a := range t.storage.accounts {
			if a.SponsorID == nil {
				continue
			}
			if _, done := seen[a.ID]; done {
				continue
			}
			for _, parent := range frontier {
				if *a.SponsorID == parent {
					seen[a.ID] = struct{}{}
					ids = append(ids, a.ID)
					next = append(next, a.ID)
					break
				}
			}
		}
		frontier = next
	}
	return ids, nil
}

func (t *fakeTrustTx) MarkInactiveSubtrees(cutoff, now time.Time) ([]uuid.UUID, error) {
	var roots []uuid.UUID
	for _, a := range t.storage.accounts {
		if a.Status == core.StatusActive && a.LastActiveAt.Before(cutoff) {
			roots = append(roots, a.ID)
		}
	}

	// Everything strictly below an inactive root, roots themselves excluded.
	affected := make(map[uuid.UUID]struct{})
	for _, root := range roots {
		subtree, _ := t.SubtreeIDs(root)
		for _, id := range subtree {
			if id != root {
				affected[id] = struct{}{}
			}
		}
	}

	var marked []uuid.UUID
	for id := range affected {
		a := t.storage.accounts[id]
		if a == nil || a.Status != core.StatusActive {
			continue
		}
		a.Status = core.StatusRevouchRequired
		a.TrustStartedAt = nil
		a.RecoveryEligibleAt = nil
		a.UpdatedAt = now
		marked = append(marked, id)
	}
	return marked, nil
}

func (t *fakeTrustTx) UpsertSocialIdentity(identity *core.SocialIdentity) (*core.SocialIdentity, error) {
	for _, existing := range t.storage.identities {
		if existing.AccountID == identity.AccountID && existing.Provider == identity.Provider {
			existing.Handle = identity.Handle
			existing.ProviderUserID = identity.ProviderUserID
			existing.VerifiedAt = identity.VerifiedAt
			clone := *existing
			return &clone, nil
		}
		if existing.Provider == identity.Provider && existing.ProviderUserID == identity.ProviderUserID {
			return nil, core.ErrDuplicateSocialIdent
		}
	}
	clone := *identity
	t.storage.identities[identity.ID] = &clone
	result := clone
	return &result, nil
}

func (t *fakeTrustTx) AppendEvent(accountID uuid.UUID, eventType string, payload map[string]any) error {
	t.storage.events = append(t.storage.events, &core.AccountEvent{
		ID:        uuid.New(),
		AccountID: accountID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	})
	return nil
}

func cloneAccount(a *core.Account) *core.Account {
	clone := *a
	if a.PasswordHash != nil {
		hash := *a.PasswordHash
		clone.PasswordHash = &hash
	}
	if a.AuthProviderSubject != nil {
		subject := *a.AuthProviderSubject
		clone.AuthProviderSubject = &subject
	}
	if a.SponsorID != nil {
		sponsor := *a.SponsorID
		clone.SponsorID = &sponsor
	}
	if a.TrustStartedAt != nil {
		started := *a.TrustStartedAt
		clone.TrustStartedAt = &started
	}
	if a.RecoveryEligibleAt != nil {
		eligible := *a.RecoveryEligibleAt
		clone.RecoveryEligibleAt = &eligible
	}
	return &clone
}

func cloneInvite(inv *core.InviteCode) *core.InviteCode {
	clone := *inv
	if inv.ExpiresAt != nil {
		expires := *inv.ExpiresAt
		clone.ExpiresAt = &expires
	}
	return &clone
}
