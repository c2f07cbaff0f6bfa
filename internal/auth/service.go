package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Service authenticates credentials and resolves principals.
type Service struct {
	dir    Directory
	hasher Hasher
	tokens *TokenIssuer
	now    func() time.Time

	decoyOnce   sync.Once
	decoyDigest string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs Service.
func NewService(dir Directory, hasher Hasher, tokens *TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if dir == nil {
		return nil, errors.New("auth: directory is required")
	}
	if hasher == nil {
		return nil, errors.New("auth: hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	svc := &Service{
		dir:    dir,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      UserView
}

// Login verifies credentials, stamps lastLogin and mints a bearer token.
// Unknown users, wrong passwords and inactive accounts all yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	user, err := s.dir.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.Compare(password, s.decoy())
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !s.hasher.Compare(password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return LoginResult{}, ErrInvalidCredentials
	}
	view, err := s.View(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}
	if !view.Role.IsActive {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	now := s.now().UTC()
	if err := s.dir.TouchLastLogin(ctx, user.ID, now); err != nil {
		return LoginResult{}, fmt.Errorf("record last login: %w", err)
	}
	view.LastLogin = &now
	return LoginResult{Token: token, ExpiresAt: exp, User: view}, nil
}

// decoy returns a digest compared against when the user does not exist, so
// unknown usernames cost the same hashing work as wrong passwords.
func (s *Service) decoy() string {
	s.decoyOnce.Do(func() {
		digest, err := s.hasher.Hash("decoy-password-for-timing")
		if err == nil {
			s.decoyDigest = digest
		}
	})
	return s.decoyDigest
}

// Principal loads a user with role and resolved privileges.
func (s *Service) Principal(ctx context.Context, userID string) (Principal, error) {
	user, err := s.dir.GetUser(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	role, err := s.dir.GetRole(ctx, user.RoleID)
	if err != nil {
		return Principal{}, err
	}
	privs, err := s.dir.RolePrivileges(ctx, role.ID)
	if err != nil {
		return Principal{}, err
	}
	return NewPrincipal(user, role, privs), nil
}

// AuthenticateToken validates a bearer token and returns the principal.
// Tokens for deleted or deactivated users are rejected as invalid.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	principal, err := s.Principal(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if !principal.User.IsActive || !principal.Role.IsActive {
		return Principal{}, ErrInvalidToken
	}
	return principal, nil
}

// View expands a user with its role and the role's privileges.
func (s *Service) View(ctx context.Context, user User) (UserView, error) {
	role, err := s.dir.GetRole(ctx, user.RoleID)
	if err != nil {
		return UserView{}, err
	}
	privs, err := s.dir.RolePrivileges(ctx, role.ID)
	if err != nil {
		return UserView{}, err
	}
	return UserView{User: user, Role: RoleView{Role: role, Privileges: privs}}, nil
}
