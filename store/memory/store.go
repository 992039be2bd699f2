// Package memory is an in-process implementation of the authcore repository
// contracts. It is meant for tests, examples, and single-process tools.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrEthical07/authcore"
)

// Store keeps identities and refresh tokens in maps guarded by one mutex. The email
// index makes InsertIdentityIfEmailFree a single check-and-set under the lock.
type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	identities map[string]authcore.Identity
	byEmail    map[string]string
	refresh    map[string]authcore.RefreshRecord
}

var _ authcore.Repository = (*Store)(nil)

// New returns an empty Store. now may be nil.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:        now,
		identities: make(map[string]authcore.Identity),
		byEmail:    make(map[string]string),
		refresh:    make(map[string]authcore.RefreshRecord),
	}
}

func (s *Store) InsertIdentityIfEmailFree(ctx context.Context, identity authcore.Identity) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[identity.Email]; taken {
		return "", authcore.ErrEmailAlreadyExists
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = s.now()
	}
	if identity.UpdatedAt.IsZero() {
		identity.UpdatedAt = identity.CreatedAt
	}
	s.identities[identity.ID] = identity
	s.byEmail[identity.Email] = identity.ID
	return identity.ID, nil
}

func (s *Store) FindIdentityByEmail(ctx context.Context, email string) (authcore.Identity, error) {
	if err := ctx.Err(); err != nil {
		return authcore.Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return authcore.Identity{}, authcore.ErrIdentityNotFound
	}
	return s.identities[id], nil
}

func (s *Store) FindIdentityByID(ctx context.Context, id string) (authcore.Identity, error) {
	if err := ctx.Err(); err != nil {
		return authcore.Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return authcore.Identity{}, authcore.ErrIdentityNotFound
	}
	return identity, nil
}

func (s *Store) SoftDeactivate(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return authcore.ErrIdentityNotFound
	}
	if !identity.IsActive {
		return nil
	}
	identity.IsActive = false
	identity.UpdatedAt = s.now()
	s.identities[id] = identity
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return authcore.ErrIdentityNotFound
	}
	identity.PasswordHash = passwordHash
	identity.UpdatedAt = s.now()
	s.identities[id] = identity
	return nil
}

func (s *Store) UpdateIdentity(ctx context.Context, id, name, email string) (authcore.Identity, error) {
	if err := ctx.Err(); err != nil {
		return authcore.Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[id]
	if !ok {
		return authcore.Identity{}, authcore.ErrIdentityNotFound
	}
	if email != identity.Email {
		if _, taken := s.byEmail[email]; taken {
			return authcore.Identity{}, authcore.ErrEmailAlreadyExists
		}
		delete(s.byEmail, identity.Email)
		s.byEmail[email] = id
		identity.Email = email
	}
	identity.Name = name
	identity.UpdatedAt = s.now()
	s.identities[id] = identity
	return identity, nil
}

func (s *Store) ListActive(ctx context.Context, limit, offset int) ([]authcore.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	active := make([]authcore.Identity, 0, len(s.identities))
	for _, identity := range s.identities {
		if identity.IsActive {
			active = append(active, identity)
		}
	}
	s.mu.Unlock()

	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].ID > active[j].ID
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})

	if offset >= len(active) {
		return []authcore.Identity{}, nil
	}
	end := offset + limit
	if end > len(active) {
		end = len(active)
	}
	return active[offset:end], nil
}

func (s *Store) CountActive(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, identity := range s.identities {
		if identity.IsActive {
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertRefreshToken(ctx context.Context, record authcore.RefreshRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh[record.Digest] = record
	return nil
}

func (s *Store) ConsumeRefreshToken(ctx context.Context, digest string) (authcore.RefreshRecord, error) {
	if err := ctx.Err(); err != nil {
		return authcore.RefreshRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.refresh[digest]
	if !ok {
		return authcore.RefreshRecord{}, authcore.ErrInvalidRefreshToken
	}
	delete(s.refresh, digest)
	return record, nil
}

func (s *Store) RevokeRefreshTokens(ctx context.Context, identityID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for digest, record := range s.refresh {
		if record.IdentityID == identityID {
			delete(s.refresh, digest)
		}
	}
	return nil
}

// RefreshCount returns the number of stored refresh tokens.
func (s *Store) RefreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refresh)
}
