package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/auth/models"
)

// MemoryStore is a UserStore held in a map. It honours the same contract as the
// database stores and backs the auth tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*models.User), now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
			return ErrUserAlreadyExist
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	u.RefreshToken = nil

	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return public(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return public(u), nil
}

func (s *MemoryStore) GetUserWithRefreshToken(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	if u.RefreshToken != nil {
		tok := *u.RefreshToken
		cp.RefreshToken = &tok
	}
	return &cp, nil
}

func (s *MemoryStore) SetRefreshToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.RefreshToken = &token
	u.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) ClearRefreshToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.RefreshToken = nil
		u.UpdatedAt = s.now()
	}
	return nil
}

func (s *MemoryStore) ClearRefreshTokenIf(_ context.Context, id, expected string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != expected {
		return false, nil
	}
	u.RefreshToken = nil
	u.UpdatedAt = s.now()
	return true, nil
}

func (s *MemoryStore) ListUsers(_ context.Context, f UserFilter) ([]models.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := make([]models.User, 0)
	for _, u := range s.users {
		if u.Role == models.RoleAdmin {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		if f.From != nil && u.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && u.CreatedAt.After(*f.To) {
			continue
		}
		matched = append(matched, *public(u))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []models.User{}, total, nil
	}
	end := len(matched)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (s *MemoryStore) CountUsers(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, u := range s.users {
		if u.Role == models.RoleUser {
			n++
		}
	}
	return n, nil
}

func public(u *models.User) *models.User {
	cp := *u
	cp.RefreshToken = nil
	return &cp
}
