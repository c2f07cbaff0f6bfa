package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// CreateUser validates input, hashes the password and inserts the user.
// Duplicate usernames or emails are rejected by the store constraint.
func (s *RBACService) CreateUser(ctx context.Context, in NewUser) (User, error) {
	u, err := s.normalizeNewUser(ctx, in, true)
	if err != nil {
		return User{}, err
	}
	digest, err := s.hashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = digest
	return s.dir.CreateUser(ctx, u)
}

func (s *RBACService) GetUser(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.dir.GetUser(ctx, id)
}

func (s *RBACService) ListUsers(ctx context.Context) ([]User, error) {
	return s.dir.ListUsers(ctx)
}

// ReplaceUser is the full-save path: every field is rewritten. An empty
// password keeps the current digest; any other value is re-hashed.
func (s *RBACService) ReplaceUser(ctx context.Context, id string, in NewUser) (User, error) {
	existing, err := s.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	u, err := s.normalizeNewUser(ctx, in, false)
	if err != nil {
		return User{}, err
	}
	upd := UserUpdate{
		Username: &u.Username,
		Email:    &u.Email,
		RoleID:   &u.RoleID,
		IsActive: &u.IsActive,
		FullName: &u.FullName,
	}
	if in.Password != "" {
		digest, err := s.hashPassword(in.Password)
		if err != nil {
			return User{}, err
		}
		upd.Password = &digest
	}
	return s.dir.UpdateUser(ctx, existing.ID, upd)
}

// PatchUser is the partial-update path. A supplied password is re-hashed
// exactly as in ReplaceUser.
func (s *RBACService) PatchUser(ctx context.Context, id string, upd UserUpdate) (User, error) {
	existing, err := s.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return User{}, fmt.Errorf("%w: Username is required", ErrInvalidInput)
		}
		upd.Username = &username
	}
	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email)
		if err != nil {
			return User{}, err
		}
		upd.Email = &email
	}
	if upd.RoleID != nil {
		roleID := strings.TrimSpace(*upd.RoleID)
		if err := s.ensureRoleExists(ctx, roleID); err != nil {
			return User{}, err
		}
		upd.RoleID = &roleID
	}
	if upd.FullName != nil {
		full := strings.TrimSpace(*upd.FullName)
		upd.FullName = &full
	}
	if upd.Password != nil {
		digest, err := s.hashPassword(*upd.Password)
		if err != nil {
			return User{}, err
		}
		upd.Password = &digest
	}
	return s.dir.UpdateUser(ctx, existing.ID, upd)
}

func (s *RBACService) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.dir.DeleteUser(ctx, id)
}

func (s *RBACService) normalizeNewUser(ctx context.Context, in NewUser, requirePassword bool) (User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return User{}, fmt.Errorf("%w: Username is required", ErrInvalidInput)
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return User{}, err
	}
	if requirePassword && in.Password == "" {
		return User{}, fmt.Errorf("%w: Password is required", ErrInvalidInput)
	}
	roleID := strings.TrimSpace(in.RoleID)
	if err := s.ensureRoleExists(ctx, roleID); err != nil {
		return User{}, err
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return User{
		Username: username,
		Email:    email,
		RoleID:   roleID,
		IsActive: active,
		FullName: strings.TrimSpace(in.FullName),
	}, nil
}

// hashPassword enforces the password policy and returns a fresh digest.
func (s *RBACService) hashPassword(password string) (string, error) {
	if res := ValidatePassword(password); !res.IsValid {
		return "", fmt.Errorf("%w: %s", ErrInvalidInput, res.Message)
	}
	return s.hasher.Hash(password)
}

func (s *RBACService) ensureRoleExists(ctx context.Context, roleID string) error {
	if roleID == "" {
		return fmt.Errorf("%w: Role is required", ErrInvalidInput)
	}
	if _, err := s.dir.GetRole(ctx, roleID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: Role does not exist", ErrInvalidInput)
		}
		return err
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: Email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: Email is invalid", ErrInvalidInput)
	}
	return email, nil
}
