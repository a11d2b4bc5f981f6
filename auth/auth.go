// Package auth resolves users, credentials and permissions. Core
// operations never read ambient request state; they receive an explicit
// Caller resolved here.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"epharma/ent"
	"epharma/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrPermissionDenied   = errors.New("permission denied")
)

// Caller identifies the user executing an operation together with the
// admin permissions they hold. Permissions are additive strings; there
// is no role hierarchy and IsAdmin by itself grants nothing.
type Caller struct {
	UserID      int64
	IsAdmin     bool
	Permissions []string
}

func (c Caller) Can(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}

	return false
}

type Service struct {
	users      store.UserStore
	signingKey []byte
	tokenTTL   int
}

// NewService builds an auth service. tokenTTLHours bounds issued token
// lifetime.
func NewService(users store.UserStore, signingKey string, tokenTTLHours int) *Service {
	return &Service{
		users:      users,
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTLHours,
	}
}

func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*ent.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &ent.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
	}

	err = s.users.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}

	return u, nil
}

// Login checks the credentials and returns a signed session token. A
// missing user and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *ent.User, error) {
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(u)
	if err != nil {
		return "", nil, err
	}

	return token, u, nil
}

// Resolve maps a user id to the Caller used by the core operations.
func (s *Service) Resolve(ctx context.Context, userID int64) (Caller, error) {
	u, err := s.users.User(ctx, userID)
	if err != nil {
		return Caller{}, err
	}

	perms, err := s.users.Permissions(ctx, userID)
	if err != nil {
		return Caller{}, err
	}

	return Caller{UserID: u.ID, IsAdmin: u.IsAdmin, Permissions: perms}, nil
}

func (s *Service) User(ctx context.Context, userID int64) (*ent.User, error) {
	u, err := s.users.User(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.Permissions, err = s.users.Permissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return u, nil
}

// GrantPermission adds a permission to a user. The caller must hold
// manage_users.
func (s *Service) GrantPermission(ctx context.Context, caller Caller, userID int64, permission string) error {
	if !caller.Can(ent.PermManageUsers) {
		return ErrPermissionDenied
	}

	if _, err := s.users.User(ctx, userID); err != nil {
		return err
	}

	return s.users.GrantPermission(ctx, userID, permission)
}

// RevokePermission removes a permission from a user. The caller must
// hold manage_users.
func (s *Service) RevokePermission(ctx context.Context, caller Caller, userID int64, permission string) error {
	if !caller.Can(ent.PermManageUsers) {
		return ErrPermissionDenied
	}

	if _, err := s.users.User(ctx, userID); err != nil {
		return err
	}

	return s.users.RevokePermission(ctx, userID, permission)
}
