package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"evera/internal/platform/logger"
	"evera/internal/session/models"
	"evera/pkg/platform/sentinel"
	platformstrings "evera/pkg/platform/strings"
)

const persistTimeout = 3 * time.Second

// Persister is the durable side of the store: one value under one namespace
// key. Load returns sentinel.ErrNotFound when nothing was saved yet.
type Persister interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snapshot models.Snapshot) error
}

// Store is the single owner of the session Credential and Profile. All
// mutation goes through SetCredential, SetProfile and Clear; each is
// synchronous and writes the full snapshot through to the persister.
type Store struct {
	// writeMu orders mutations with their persistence; mu guards the fields.
	writeMu    sync.Mutex
	mu         sync.RWMutex
	credential models.Credential
	profile    models.Profile
	persister  Persister
	logger     *slog.Logger
	onClear    []func()
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClearHook registers fn to run after every Clear.
func WithClearHook(fn func()) Option {
	return func(s *Store) {
		s.onClear = append(s.onClear, fn)
	}
}

// New rehydrates a store from persister. A missing or unreadable snapshot
// yields an empty, unauthenticated store; it never fails construction.
func New(ctx context.Context, persister Persister, opts ...Option) (*Store, error) {
	if persister == nil {
		return nil, errors.New("session persister is required")
	}

	s := &Store{
		persister: persister,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, err := persister.Load(ctx)
	switch {
	case err == nil && snap != nil:
		s.credential = snap.State.Credential
		s.profile = snap.State.Profile
		s.logger.DebugContext(ctx, "session rehydrated", "authenticated", s.credential.Present())
	case err == nil, errors.Is(err, sentinel.ErrNotFound):
	default:
		s.logger.WarnContext(ctx, "session rehydration failed, starting signed out", "error", err)
	}

	return s, nil
}

// Credential returns the current token pair.
func (s *Store) Credential() models.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// Profile returns a copy of the current profile.
func (s *Store) Profile() models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProfile(s.profile)
}

// IsAuthenticated reports whether an access token is held. Profile presence
// plays no part in this decision.
func (s *Store) IsAuthenticated() bool {
	return s.Credential().Present()
}

// State returns the state machine position.
func (s *Store) State() models.State {
	if s.IsAuthenticated() {
		return models.StateAuthenticated
	}
	return models.StateUnauthenticated
}

// Roles returns the profile's role set.
func (s *Store) Roles() []models.Role {
	return s.Profile().Roles
}

// Permissions returns the profile's permission codes.
func (s *Store) Permissions() []string {
	return s.Profile().Permissions
}

// SetCredential replaces the token pair. An empty access token is stored as
// given and leaves the store unauthenticated.
func (s *Store) SetCredential(c models.Credential) {
	s.mutate(func() {
		s.credential = c
	})
}

// SetProfile replaces the profile. Permission codes are trimmed and
// de-duplicated.
func (s *Store) SetProfile(p models.Profile) {
	p = cloneProfile(p)
	p.Permissions = platformstrings.Compact(p.Permissions)
	s.mutate(func() {
		s.profile = p
	})
}

// Clear empties both Credential and Profile. Calling it repeatedly is
// equivalent to calling it once.
func (s *Store) Clear() {
	s.mutate(func() {
		s.credential = models.Credential{}
		s.profile = models.Profile{}
	})
	for _, fn := range s.onClear {
		fn()
	}
}

func (s *Store) mutate(apply func()) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	apply()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(snap)
}

func (s *Store) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		State: models.SnapshotState{
			Profile:    cloneProfile(s.profile),
			Credential: s.credential,
		},
	}
}

// persist is best-effort: the in-memory state has already changed.
func (s *Store) persist(snap models.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.persister.Save(ctx, snap); err != nil {
		s.logger.WarnContext(ctx, "failed to persist session", "error", err)
	}
}

func cloneProfile(p models.Profile) models.Profile {
	if p.Roles != nil {
		p.Roles = append([]models.Role(nil), p.Roles...)
	}
	if p.Permissions != nil {
		p.Permissions = append([]string(nil), p.Permissions...)
	}
	return p
}
