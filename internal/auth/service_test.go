package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const testPassword = "P@ssw0rd$2023X"

type fixture struct {
	dir   *memDirectory
	rbac  *RBACService
	svc   *Service
	super Role
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := newMemDirectory()
	hasher, err := NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcryptHasher: %v", err)
	}
	rbac, err := NewRBACService(dir, hasher)
	if err != nil {
		t.Fatalf("NewRBACService: %v", err)
	}
	f := &fixture{dir: dir, rbac: rbac, now: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)}
	tokens, err := NewTokenIssuer("fixture-secret", WithTokenClock(func() time.Time { return f.now }))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	svc, err := NewService(dir, hasher, tokens, WithClock(func() time.Time { return f.now }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	f.super, err = rbac.Bootstrap(context.Background(), nil)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return f
}

func (f *fixture) privilegeID(t *testing.T, code string) string {
	t.Helper()
	p, err := f.dir.GetPrivilegeByCode(context.Background(), code)
	if err != nil {
		t.Fatalf("privilege %s: %v", code, err)
	}
	return p.ID
}

func (f *fixture) createUser(t *testing.T, username, roleID string) User {
	t.Helper()
	u, err := f.rbac.CreateUser(context.Background(), NewUser{
		Username: username,
		Email:    username + "@Example.com",
		Password: testPassword,
		RoleID:   roleID,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestLoginSuccessStampsLastLogin(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "alice", f.super.ID)
	if u.LastLogin != nil {
		t.Fatal("new user should not have lastLogin")
	}

	res, err := f.svc.Login(context.Background(), "alice", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected token")
	}
	if res.User.Role.Name != SuperadminRole || len(res.User.Role.Privileges) != len(BuiltinPrivileges) {
		t.Fatalf("unexpected role view: %+v", res.User.Role)
	}
	stored, _ := f.dir.GetUser(context.Background(), u.ID)
	if stored.LastLogin == nil || !stored.LastLogin.Equal(f.now) {
		t.Fatalf("expected lastLogin=%v, got %v", f.now, stored.LastLogin)
	}

	principal, err := f.svc.AuthenticateToken(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("AuthenticateToken: %v", err)
	}
	if principal.User.ID != u.ID || !principal.HasPrivilege(PrivRolesUpdate) {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "bob", f.super.ID)

	_, errWrong := f.svc.Login(context.Background(), "bob", "Wr0ng!Passw0rdZ")
	_, errUnknown := f.svc.Login(context.Background(), "nobody", testPassword)
	for _, err := range []error{errWrong, errUnknown} {
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Fatalf("messages differ: %q vs %q", errWrong, errUnknown)
	}
	stored, _ := f.dir.GetUser(context.Background(), u.ID)
	if stored.LastLogin != nil {
		t.Fatal("failed login must not stamp lastLogin")
	}
}

func TestLoginRejectsInactiveAccounts(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "carol", f.super.ID)
	inactive := false
	if _, err := f.rbac.PatchUser(context.Background(), u.ID, UserUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("PatchUser: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "carol", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateTokenRejectsDeletedUser(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "dave", f.super.ID)
	res, err := f.svc.Login(context.Background(), "dave", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := f.rbac.DeleteUser(context.Background(), res.User.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := f.svc.AuthenticateToken(context.Background(), res.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRequireIsSubsetCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	editor, err := f.rbac.CreateRole(ctx, "editor", "", []string{
		f.privilegeID(t, PrivPostsRead),
		f.privilegeID(t, PrivPostsWrite),
	}, nil)
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	u := f.createUser(t, "erin", editor.ID)

	require := func(codes ...string) error {
		t.Helper()
		p, err := f.svc.Principal(ctx, u.ID)
		if err != nil {
			t.Fatalf("Principal: %v", err)
		}
		return p.Require(codes...)
	}

	if err := require(PrivPostsRead, PrivPostsWrite); err != nil {
		t.Fatalf("expected subset to pass: %v", err)
	}
	err = require(PrivPostsRead, PrivPostsPublish, PrivMediaUpload)
	var missing *MissingPrivilegesError
	if !errors.As(err, &missing) || !errors.Is(err, ErrForbidden) || Detail(err) != "Insufficient privileges" {
		t.Fatalf("expected Insufficient privileges, got %v", err)
	}
	if len(missing.Missing) != 2 || missing.Missing[0] != PrivPostsPublish || missing.Missing[1] != PrivMediaUpload {
		t.Fatalf("unexpected missing codes: %v", missing.Missing)
	}

	only := []string{f.privilegeID(t, PrivPostsRead)}
	if _, err := f.rbac.UpdateRole(ctx, editor.ID, RoleUpdate{PrivilegeIDs: &only}); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if err := require(PrivPostsRead, PrivPostsWrite); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected removal of posts.write to flip to forbidden, got %v", err)
	}
}

func TestInactivePrivilegeIsNotGranted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.privilegeID(t, PrivPostsRead)
	role, err := f.rbac.CreateRole(ctx, "reader", "", []string{id}, nil)
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	u := f.createUser(t, "frank", role.ID)
	off := false
	if _, err := f.rbac.UpdatePrivilege(ctx, id, PrivilegeUpdate{IsActive: &off}); err != nil {
		t.Fatalf("UpdatePrivilege: %v", err)
	}
	p, err := f.svc.Principal(ctx, u.ID)
	if err != nil {
		t.Fatalf("Principal: %v", err)
	}
	if p.HasPrivilege(PrivPostsRead) {
		t.Fatal("inactive privilege must not be granted")
	}
}
