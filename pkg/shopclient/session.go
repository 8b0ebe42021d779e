package shopclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Session is what the client remembers about the signed-in user. Tokens are
// never part of it; they live in the cookie jar only.
type Session struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (s *Session) IsAdmin() bool { return s != nil && s.Role == "admin" }

// SessionStore persists the Session across client restarts. Load returns
// (nil, nil) when nobody is signed in.
type SessionStore interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

type MemorySessionStore struct {
	mu sync.Mutex
	s  *Session
}

func (m *MemorySessionStore) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return nil, nil
	}
	cp := *m.s
	return &cp, nil
}

func (m *MemorySessionStore) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.s = &cp
	return nil
}

func (m *MemorySessionStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}

// FileSessionStore keeps the session as JSON at Path.
type FileSessionStore struct {
	Path string
	mu   sync.Mutex
}

func (f *FileSessionStore) Load() (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.ID == "" {
		return nil, nil
	}
	return &s, nil
}

func (f *FileSessionStore) Save(s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".session-*")
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (f *FileSessionStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
