package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestEssentialPrivilegeProtections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.privilegeID(t, PrivRolesUpdate)
	before, _ := f.dir.GetPrivilege(ctx, id)

	for name, upd := range map[string]PrivilegeUpdate{
		"code":    {Code: strPtr("roles.rename")},
		"name":    {Name: strPtr("Rename roles")},
		"module":  {Module: strPtr("misc")},
		"display": {ModuleDisplayName: strPtr("Access control")},
	} {
		_, err := f.rbac.UpdatePrivilege(ctx, id, upd)
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s: expected ErrForbidden, got %v", name, err)
		}
		if !strings.Contains(Detail(err), "essential privilege") {
			t.Fatalf("%s: message should mention essential privilege: %q", name, Detail(err))
		}
	}
	after, _ := f.dir.GetPrivilege(ctx, id)
	if after.Code != before.Code || after.Name != before.Name || after.Module != before.Module ||
		after.ModuleDisplayName != before.ModuleDisplayName {
		t.Fatalf("essential privilege changed: %+v -> %+v", before, after)
	}

	updated, err := f.rbac.UpdatePrivilege(ctx, id, PrivilegeUpdate{
		Code:              strPtr(before.Code),
		ModuleDisplayName: strPtr(" " + before.ModuleDisplayName + " "),
		Description:       strPtr("  Edit any role  "),
		IsActive:          boolPtr(false),
	})
	if err != nil {
		t.Fatalf("description/isActive update should pass: %v", err)
	}
	if updated.Description != "Edit any role" || updated.IsActive {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if err := f.rbac.DeletePrivilege(ctx, id); !errors.Is(err, ErrForbidden) || !strings.Contains(Detail(err), "essential privilege") {
		t.Fatalf("expected essential delete rejection, got %v", err)
	}
}

func TestOrdinaryPrivilegeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.rbac.CreatePrivilege(ctx, Privilege{Code: " Reports.Export ", Name: "Export reports", Module: "reports", IsActive: true})
	if err != nil {
		t.Fatalf("CreatePrivilege: %v", err)
	}
	if p.Code != "reports.export" || p.ModuleDisplayName != "reports" {
		t.Fatalf("unexpected normalization: %+v", p)
	}
	if _, err := f.rbac.CreatePrivilege(ctx, Privilege{Code: "reports.export", Name: "Other", Module: "reports"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected duplicate code conflict, got %v", err)
	}
	if _, err := f.rbac.UpdatePrivilege(ctx, p.ID, PrivilegeUpdate{Name: strPtr("View users")}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected rename collision conflict, got %v", err)
	}
	if _, err := f.rbac.UpdatePrivilege(ctx, p.ID, PrivilegeUpdate{Code: strPtr("reports.download")}); err != nil {
		t.Fatalf("ordinary code change should pass: %v", err)
	}
	if err := f.rbac.DeletePrivilege(ctx, p.ID); err != nil {
		t.Fatalf("DeletePrivilege: %v", err)
	}
}

func TestSuperadminRoleIsWriteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before, _ := f.rbac.GetRole(ctx, f.super.ID)
	someID := f.privilegeID(t, PrivPostsRead)

	cases := map[string]struct {
		upd  RoleUpdate
		want string
	}{
		"name":        {RoleUpdate{Name: strPtr("root")}, "name of the superadmin role"},
		"same name":   {RoleUpdate{Name: strPtr(SuperadminRole)}, "name of the superadmin role"},
		"description": {RoleUpdate{Description: strPtr("x")}, "description of the superadmin role"},
		"privileges":  {RoleUpdate{PrivilegeIDs: &[]string{someID}}, "privileges of the superadmin role"},
		"active":      {RoleUpdate{IsActive: boolPtr(false)}, "active status of the superadmin role"},
	}
	for name, tc := range cases {
		_, err := f.rbac.UpdateRole(ctx, f.super.ID, tc.upd)
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s: expected ErrForbidden, got %v", name, err)
		}
		if !strings.Contains(Detail(err), tc.want) {
			t.Fatalf("%s: message %q missing %q", name, Detail(err), tc.want)
		}
	}
	after, _ := f.rbac.GetRole(ctx, f.super.ID)
	if after.Name != before.Name || after.Description != before.Description ||
		after.IsActive != before.IsActive || len(after.Privileges) != len(before.Privileges) {
		t.Fatalf("superadmin changed: %+v -> %+v", before, after)
	}

	if err := f.rbac.DeleteRole(ctx, f.super.ID); !errors.Is(err, ErrForbidden) || !strings.Contains(Detail(err), "superadmin role") {
		t.Fatalf("expected superadmin delete rejection, got %v", err)
	}
}

func TestRolePrivilegeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	valid := f.privilegeID(t, PrivPostsRead)

	if _, err := f.rbac.CreateRole(ctx, "ghost", "", []string{valid, "missing-id"}, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unknown privilege rejection, got %v", err)
	}
	if _, err := f.dir.GetRoleByName(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatal("rejected create must not persist the role")
	}

	empty, err := f.rbac.CreateRole(ctx, "empty", "starts empty", nil, nil)
	if err != nil {
		t.Fatalf("empty privilege set on create should pass: %v", err)
	}
	if len(empty.Privileges) != 0 || !empty.IsActive {
		t.Fatalf("unexpected role: %+v", empty)
	}

	none := []string{}
	_, err = f.rbac.UpdateRole(ctx, empty.ID, RoleUpdate{PrivilegeIDs: &none})
	if !errors.Is(err, ErrInvalidInput) || Detail(err) != "Role must have at least one privilege" {
		t.Fatalf("expected empty update rejection, got %v", err)
	}

	bad := []string{"missing-id"}
	if _, err := f.rbac.UpdateRole(ctx, empty.ID, RoleUpdate{PrivilegeIDs: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unknown privilege rejection on update, got %v", err)
	}

	if _, err := f.rbac.CreateRole(ctx, "empty", "", nil, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected duplicate name conflict, got %v", err)
	}
	other, _ := f.rbac.CreateRole(ctx, "other", "", nil, nil)
	_, err = f.rbac.UpdateRole(ctx, other.ID, RoleUpdate{Name: strPtr("empty")})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Field != "name" {
		t.Fatalf("expected name conflict on rename, got %v", err)
	}
}

func TestPasswordRehashedOnBothWritePaths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "grace", f.super.ID)
	original := u.PasswordHash
	if original == "" || original == testPassword {
		t.Fatal("expected stored digest, not plaintext")
	}

	const patched = "N3w!Secret#Pw9z"
	pu, err := f.rbac.PatchUser(ctx, u.ID, UserUpdate{Password: strPtr(patched)})
	if err != nil {
		t.Fatalf("PatchUser: %v", err)
	}
	if pu.PasswordHash == original || pu.PasswordHash == patched {
		t.Fatalf("patch path did not re-hash: %q", pu.PasswordHash)
	}
	if !f.rbac.hasher.Compare(patched, pu.PasswordHash) {
		t.Fatal("patched digest does not verify")
	}

	const replaced = "Repl@ced#Pw7q"
	ru, err := f.rbac.ReplaceUser(ctx, u.ID, NewUser{
		Username: "grace",
		Email:    "grace@example.com",
		Password: replaced,
		RoleID:   f.super.ID,
	})
	if err != nil {
		t.Fatalf("ReplaceUser: %v", err)
	}
	if ru.PasswordHash == pu.PasswordHash || ru.PasswordHash == replaced {
		t.Fatalf("full-save path did not re-hash: %q", ru.PasswordHash)
	}
	if !f.rbac.hasher.Compare(replaced, ru.PasswordHash) {
		t.Fatal("replaced digest does not verify")
	}

	kept, err := f.rbac.ReplaceUser(ctx, u.ID, NewUser{Username: "grace", Email: "grace@example.com", RoleID: f.super.ID, FullName: "Grace H"})
	if err != nil {
		t.Fatalf("ReplaceUser without password: %v", err)
	}
	if kept.PasswordHash != ru.PasswordHash {
		t.Fatal("full save without password must keep the digest")
	}

	if _, err := f.rbac.PatchUser(ctx, u.ID, UserUpdate{Password: strPtr("weak")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected policy rejection, got %v", err)
	}
}

func TestCreateUserNormalizesAndDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "heidi", f.super.ID)
	if u.Email != "heidi@example.com" {
		t.Fatalf("email not lowercased: %q", u.Email)
	}
	if !u.IsActive {
		t.Fatal("isActive should default to true")
	}
	if _, err := f.rbac.CreateUser(ctx, NewUser{Username: "ivan", Email: "ivan@example.com", Password: testPassword}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected role required, got %v", err)
	}
	if _, err := f.rbac.CreateUser(ctx, NewUser{Username: "ivan", Email: "ivan@example.com", Password: testPassword, RoleID: "nope"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unknown role rejection, got %v", err)
	}
	_, err := f.rbac.CreateUser(ctx, NewUser{Username: "heidi2", Email: "HEIDI@example.com", Password: testPassword, RoleID: f.super.ID})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Field != "email" {
		t.Fatalf("expected email conflict, got %v", err)
	}
}

func TestConcurrentDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		dupErrs int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.rbac.CreateUser(ctx, NewUser{
				Username: "race",
				Email:    []string{"a@example.com", "b@example.com"}[i],
				Password: testPassword,
				RoleID:   f.super.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConflict):
				dupErrs++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if ok != 1 || dupErrs != 1 {
		t.Fatalf("expected exactly one success and one conflict, got %d/%d", ok, dupErrs)
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := &BootstrapAdmin{Username: "root", Email: "root@example.com", Password: testPassword}
	r1, err := f.rbac.Bootstrap(ctx, admin)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	r2, err := f.rbac.Bootstrap(ctx, admin)
	if err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	if r1.ID != r2.ID || r1.ID != f.super.ID || !r1.Protected {
		t.Fatalf("unexpected roles: %+v %+v", r1, r2)
	}
	privs, _ := f.dir.ListPrivileges(ctx)
	if len(privs) != len(BuiltinPrivileges) {
		t.Fatalf("expected %d privileges, got %d", len(BuiltinPrivileges), len(privs))
	}
	users, _ := f.dir.ListUsers(ctx)
	if len(users) != 1 || users[0].Username != "root" {
		t.Fatalf("expected single bootstrap admin, got %+v", users)
	}
}
