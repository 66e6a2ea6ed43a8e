package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nordvault/bank-backend/internal/users"
)

var _ users.Store = (*UserStore)(nil)

type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]users.User
}

func NewUserStore() *UserStore {
	return &UserStore{byEmail: make(map[string]users.User)}
}

func (s *UserStore) Create(ctx context.Context, email, fullName, passwordHash string) (users.User, error) {
	key := strings.ToLower(email)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[key]; taken {
		return users.User{}, users.ErrEmailTaken
	}
	u := users.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.byEmail[key] = u
	return u, nil
}

func (s *UserStore) ByEmail(ctx context.Context, email string) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}
