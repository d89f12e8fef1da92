// Package auth keeps the local identity used to address the user's document.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const credFileName = "credentials.json"

// Env overrides, checked before the credentials file.
const (
	EnvUser  = "TADA_USER"
	EnvToken = "TADA_TOKEN"
)

// Identity provides the id of the signed-in user.
type Identity interface {
	CurrentUserID() (string, bool)
}

type TokenInfo struct {
	UserID    string     `json:"user_id"`
	Token     string     `json:"token"`
	Source    string     `json:"source"`     // "env" | "file"
	Anonymous bool       `json:"anonymous"`  // minted by SignInAnonymously
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at"` // optional (JWT or server-provided)
}

// CurrentUserID implements Identity. A nil *TokenInfo has no user.
func (ti *TokenInfo) CurrentUserID() (string, bool) {
	if ti == nil {
		return "", false
	}
	id := strings.TrimSpace(ti.UserID)
	return id, id != ""
}

// Store reads and writes credentials under a directory (~/.tada by default).
type Store struct {
	dir    string
	getenv func(string) string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, getenv: os.Getenv}
}

func (s *Store) credFilePath() string {
	return filepath.Join(s.dir, credFileName)
}

// Get returns the active credentials, or nil when not signed in.
func (s *Store) Get() (*TokenInfo, error) {
	// 1) env override
	if user := strings.TrimSpace(s.getenv(EnvUser)); user != "" {
		return &TokenInfo{
			UserID: user,
			Token:  stripBearer(strings.TrimSpace(s.getenv(EnvToken))),
			Source: "env",
		}, nil
	}

	// 2) file
	b, err := os.ReadFile(s.credFilePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil // not logged in
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var ti TokenInfo
	if err := json.Unmarshal(b, &ti); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	ti.Token = stripBearer(ti.Token)
	ti.Source = "file"
	if env := strings.TrimSpace(s.getenv(EnvToken)); env != "" {
		ti.Token = stripBearer(env)
	}
	return &ti, nil
}

// Set stores credentials for userID.
func (s *Store) Set(userID, token string, expires *time.Time) (*TokenInfo, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("empty user id")
	}
	ti := &TokenInfo{
		UserID:    userID,
		Token:     stripBearer(strings.TrimSpace(token)),
		Source:    "file",
		CreatedAt: time.Now(),
		ExpiresAt: expires,
	}
	if err := s.write(ti); err != nil {
		return nil, err
	}
	return ti, nil
}

// SignInAnonymously returns the existing identity or mints a new anonymous
// one. Calling it again keeps the same user id.
func (s *Store) SignInAnonymously() (*TokenInfo, error) {
	ti, err := s.Get()
	if err != nil {
		return nil, err
	}
	if _, ok := ti.CurrentUserID(); ok {
		return ti, nil
	}
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	ti = &TokenInfo{
		UserID:    uuid.NewString(),
		Token:     token,
		Source:    "file",
		Anonymous: true,
		CreatedAt: time.Now(),
	}
	if err := s.write(ti); err != nil {
		return nil, err
	}
	return ti, nil
}

func (s *Store) write(ti *TokenInfo) error {
	// ensure ~/.tada exists with 0700
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(ti, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	// write with 0600 (owner-only)
	if err := os.WriteFile(s.credFilePath(), b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Delete removes the credentials file. Missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.credFilePath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}

// JWTPayload decodes the (unverified) payload of a JWT. ok is false for
// opaque tokens.
func JWTPayload(token string) (payload string, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", false
	}
	p, err := decodeB64URL(parts[1])
	if err != nil {
		return "", false
	}
	return p, true
}

func decodeB64URL(s string) (string, error) {
	dec, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", err
	}
	return string(dec), nil
}
