// Package session keeps the authenticated user and token for the process.
// Both values are persisted write-through so a later run resumes the
// session.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-client/pkg/kvstore"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

const (
	KeyToken = "token"
	KeyUser  = "user"
)

var ErrIncomplete = errors.New("session: token and user id are required")

type Store struct {
	kv  kvstore.Store
	log *zap.Logger

	// mu guards the in-memory copy; writeMu serializes persistence.
	mu      sync.RWMutex
	writeMu sync.Mutex
	token   string
	user    *model.User
}

// New restores whatever session kv holds. A missing or unreadable session
// is not an error, the store simply starts logged out.
func New(ctx context.Context, kv kvstore.Store, log *zap.Logger) (*Store, error) {
	if kv == nil {
		return nil, errors.New("session: nil kvstore")
	}
	s := &Store{
		kv:  kv,
		log: log.Named("session"),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads persistence. Only backend failures are returned.
func (s *Store) Reload(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	token, err := s.read(ctx, KeyToken)
	if err != nil {
		return err
	}
	rawUser, err := s.read(ctx, KeyUser)
	if err != nil {
		return err
	}

	user, ok := s.decodeUser(rawUser)
	if token == "" || !ok {
		if token != "" || rawUser != "" {
			s.log.Warn("discarding incomplete persisted session",
				zap.Bool("has_token", token != ""),
				zap.Bool("has_user", ok))
			if err := s.kv.Delete(ctx, KeyToken, KeyUser); err != nil {
				s.log.Warn("purge session", zap.Error(err))
			}
		}
		s.set("", nil)
		return nil
	}
	s.set(token, &user)
	return nil
}

// Login replaces the session. User and token are written together or not
// at all.
func (s *Store) Login(ctx context.Context, user model.User, token string) error {
	if token == "" || user.ID == "" {
		return ErrIncomplete
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "session: encode user")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.kv.Set(ctx, KeyUser, string(raw)); err != nil {
		return errors.Wrap(err, "session: persist user")
	}
	if err := s.kv.Set(ctx, KeyToken, token); err != nil {
		if derr := s.kv.Delete(ctx, KeyUser); derr != nil {
			s.log.Warn("roll back user", zap.Error(derr))
		}
		return errors.Wrap(err, "session: persist token")
	}
	s.set(token, &user)
	s.log.Debug("logged in", zap.String("user_id", user.ID))
	return nil
}

// Logout clears memory even when persistence fails, so the process never
// keeps acting as a user that asked to leave.
func (s *Store) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.set("", nil)
	if err := s.kv.Delete(ctx, KeyToken, KeyUser); err != nil {
		return errors.Wrap(err, "session: clear")
	}
	return nil
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) CurrentUser() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

func (s *Store) set(token string, user *model.User) {
	s.mu.Lock()
	s.token, s.user = token, user
	s.mu.Unlock()
}

func (s *Store) read(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "session: read %s", key)
	}
	return v, nil
}

// decodeUser rejects the placeholder strings a careless writer may have
// stored in place of a real value.
func (s *Store) decodeUser(raw string) (model.User, bool) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "undefined", "null":
		return model.User{}, false
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Warn("persisted user is not valid json", zap.Error(err))
		return model.User{}, false
	}
	if u.ID == "" {
		return model.User{}, false
	}
	return u, true
}
