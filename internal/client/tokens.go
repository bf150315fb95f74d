package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flightkoy/questboard/internal/questboard"
)

// TokenStore persists the bearer token between calls.
type TokenStore interface {
	Get() string
	Set(token string) error
	Clear() error
}

type MemoryTokens struct {
	mu    sync.Mutex
	token string
}

func NewMemoryTokens() *MemoryTokens { return &MemoryTokens{} }

func (m *MemoryTokens) Get() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *MemoryTokens) Set(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokens) Clear() error { return m.Set("") }

// FileTokens keeps the token in a file readable only by the owner.
type FileTokens struct {
	path string
}

func NewFileTokens(path string) *FileTokens { return &FileTokens{path: path} }

// Get returns "" when the file is missing or unreadable.
func (f *FileTokens) Get() string {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (f *FileTokens) Set(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	return os.WriteFile(f.path, []byte(token), 0o600)
}

func (f *FileTokens) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

var ErrMalformedToken = errors.New("malformed token")

// Claims are the identity fields of a bearer token.
type Claims struct {
	UserName string
	Role     questboard.Role
}

func (c Claims) IsAdmin() bool { return c.Role == questboard.RoleAdmin }

// DecodeToken reads the sub and role claims without verifying the
// signature or expiry. Only the server can verify a token; the client uses
// the claims to decide what to show.
func DecodeToken(token string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, fmt.Errorf("%w: sub claim is missing", ErrMalformedToken)
	}
	role, _ := claims["role"].(string)
	return Claims{UserName: sub, Role: questboard.Role(role)}, nil
}
