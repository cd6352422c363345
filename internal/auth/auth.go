// Package auth implements identity for the application: user records kept in
// the tree store, bcrypt-hashed passwords, JWT session cookies and Google
// OAuth sign-in.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"timelog/internal/observability"
	"timelog/internal/store"
)

const minPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailInUse         = errors.New("an account with this email already exists")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// User is a stored account record.
type User struct {
	UID          string `json:"-"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash,omitempty"`
	Provider     string `json:"provider"` // "password" or "google"
	CreatedAt    int64  `json:"created_at"`
}

// Service owns account records under auth/users/{uid} with an email index
// under auth/emails/{key}.
type Service struct {
	tree store.Tree
}

func NewService(tree store.Tree) *Service {
	return &Service{tree: tree}
}

// Signup creates a password account. The email must not already be in use.
func (s *Service) Signup(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if existing, err := s.lookupUID(ctx, email); err != nil {
		return nil, err
	} else if existing != "" {
		return nil, ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		UID:          newUID(),
		Email:        email,
		PasswordHash: string(hash),
		Provider:     "password",
		CreatedAt:    time.Now().UnixMilli(),
	}
	if err := s.saveUser(ctx, user); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "User signed up", "uid", user.UID, "provider", user.Provider)
	return user, nil
}

// Login verifies a password credential and returns the account.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	uid, err := s.lookupUID(ctx, email)
	if err != nil {
		return nil, err
	}
	if uid == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.getUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		// Google-only account; no password to check against.
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// LookupOrCreateGoogleUser links a Google-verified email to an existing
// account or creates a passwordless one.
func (s *Service) LookupOrCreateGoogleUser(ctx context.Context, email string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	uid, err := s.lookupUID(ctx, email)
	if err != nil {
		return nil, err
	}
	if uid != "" {
		return s.getUser(ctx, uid)
	}

	user := &User{
		UID:       newUID(),
		Email:     email,
		Provider:  "google",
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.saveUser(ctx, user); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "User signed up", "uid", user.UID, "provider", user.Provider)
	return user, nil
}

func (s *Service) lookupUID(ctx context.Context, email string) (string, error) {
	snap, err := s.tree.Read(ctx, emailIndexPath(email))
	observability.ObserveStoreOp("read", err)
	if err != nil {
		return "", fmt.Errorf("lookup email index: %w", err)
	}
	if !snap.Exists() {
		return "", nil
	}
	var uid string
	if err := snap.Decode(&uid); err != nil {
		return "", err
	}
	return uid, nil
}

func (s *Service) getUser(ctx context.Context, uid string) (*User, error) {
	snap, err := s.tree.Read(ctx, userPath(uid))
	observability.ObserveStoreOp("read", err)
	if err != nil {
		return nil, fmt.Errorf("read user %s: %w", uid, err)
	}
	if !snap.Exists() {
		return nil, ErrInvalidCredentials
	}
	var user User
	if err := snap.Decode(&user); err != nil {
		return nil, err
	}
	user.UID = uid
	return &user, nil
}

func (s *Service) saveUser(ctx context.Context, user *User) error {
	err := s.tree.Write(ctx, userPath(user.UID), user)
	observability.ObserveStoreOp("write", err)
	if err != nil {
		return fmt.Errorf("write user %s: %w", user.UID, err)
	}

	err = s.tree.Write(ctx, emailIndexPath(user.Email), user.UID)
	observability.ObserveStoreOp("write", err)
	if err != nil {
		return fmt.Errorf("write email index: %w", err)
	}
	return nil
}

func userPath(uid string) string {
	return store.Join("auth", "users", uid)
}

// emailIndexPath keys the index by the url-safe base64 of the lowercased
// address, since raw emails contain characters the tree paths disallow.
func emailIndexPath(email string) string {
	key := base64.RawURLEncoding.EncodeToString([]byte(email))
	return store.Join("auth", "emails", key)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func newUID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
