package httpapi

import (
	"net/http"
	"testing"

	"gatehouse.io/internal/auth"
)

func TestProtectedEntityMessages(t *testing.T) {
	env := newTestEnv(t, defaultLimits())
	admin := env.login("admin", testPassword)
	superPath := "/api/roles/" + env.super.ID

	resp := env.authed(http.MethodPut, superPath, admin, map[string]any{"name": "root"})
	expectError(t, resp, http.StatusForbidden, "Cannot modify the name of the superadmin role")
	resp = env.authed(http.MethodPut, superPath, admin, map[string]any{"isActive": false})
	expectError(t, resp, http.StatusForbidden, "Cannot change the active status of the superadmin role")
	resp = env.authed(http.MethodDelete, superPath, admin, nil)
	expectError(t, resp, http.StatusForbidden, "Cannot delete the superadmin role")

	role := decode[auth.RoleView](t, env.authed(http.MethodGet, superPath, admin, nil))
	if role.Name != auth.SuperadminRole || !role.IsActive {
		t.Fatalf("superadmin role changed: %+v", role.Role)
	}

	essential := "/api/privileges/" + env.privilegeID(auth.PrivRolesUpdate)
	resp = env.authed(http.MethodPut, essential, admin, map[string]any{"code": "roles.edit"})
	expectError(t, resp, http.StatusForbidden, "Cannot modify the code of an essential privilege")
	resp = env.authed(http.MethodDelete, essential, admin, nil)
	expectError(t, resp, http.StatusForbidden, "Cannot delete an essential privilege")

	resp = env.authed(http.MethodPatch, essential, admin, map[string]any{"description": "Rename and re-grant roles"})
	priv := decode[auth.Privilege](t, resp)
	if resp.StatusCode != http.StatusOK || priv.Description != "Rename and re-grant roles" || priv.Code != auth.PrivRolesUpdate {
		t.Fatalf("description update: %d %+v", resp.StatusCode, priv)
	}
}

func TestRoleValidationAndConflicts(t *testing.T) {
	env := newTestEnv(t, defaultLimits())
	admin := env.login("admin", testPassword)

	resp := env.authed(http.MethodPost, "/api/roles", admin, map[string]any{"name": "ghosts", "privileges": []string{"missing-id"}})
	expectError(t, resp, http.StatusBadRequest, "One or more privileges do not exist")

	resp = env.authed(http.MethodPost, "/api/roles", admin, map[string]any{"name": "empty"})
	role := decode[auth.RoleView](t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("empty role create: %d", resp.StatusCode)
	}
	resp = env.authed(http.MethodPut, "/api/roles/"+role.ID, admin, map[string]any{"privileges": []string{}})
	expectError(t, resp, http.StatusBadRequest, "Role must have at least one privilege")

	resp = env.authed(http.MethodPost, "/api/roles", admin, map[string]any{"name": "empty"})
	expectError(t, resp, http.StatusBadRequest, "name already exists")

	resp = env.authed(http.MethodPost, "/api/users", admin, map[string]any{
		"username": "admin",
		"email":    "other@example.com",
		"password": testPassword,
		"role":     env.super.ID,
	})
	expectError(t, resp, http.StatusBadRequest, "username already exists")

	resp = env.authed(http.MethodPost, "/api/users", admin, map[string]any{
		"username": "nomail",
		"password": testPassword,
		"role":     env.super.ID,
	})
	expectError(t, resp, http.StatusBadRequest, "email is required")

	resp = env.authed(http.MethodPost, "/api/users", admin, map[string]any{
		"username": "weak",
		"email":    "weak@example.com",
		"password": "Short1!",
		"role":     env.super.ID,
	})
	expectError(t, resp, http.StatusBadRequest, "Password must be at least 12 characters long")

	resp = env.authed(http.MethodGet, "/api/users/does-not-exist", admin, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUserWritePathsRehashPassword(t *testing.T) {
	env := newTestEnv(t, defaultLimits())
	admin := env.login("admin", testPassword)

	resp := env.authed(http.MethodPost, "/api/users", admin, map[string]any{
		"username": "writer",
		"email":    "writer@example.com",
		"password": testPassword,
		"role":     env.super.ID,
	})
	user := decode[auth.User](t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user: %d", resp.StatusCode)
	}

	const patched = "N3w!Secret#Pw9z"
	resp = env.authed(http.MethodPatch, "/api/users/"+user.ID, admin, map[string]any{"password": patched})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch user: %d", resp.StatusCode)
	}
	resp.Body.Close()
	env.login("writer", patched)

	const replaced = "Repl@ced#Pw7q"
	resp = env.authed(http.MethodPut, "/api/users/"+user.ID, admin, map[string]any{
		"username": "writer",
		"email":    "writer@example.com",
		"password": replaced,
		"role":     env.super.ID,
		"fullName": "Wendy Writer",
	})
	saved := decode[auth.User](t, resp)
	if resp.StatusCode != http.StatusOK || saved.FullName != "Wendy Writer" {
		t.Fatalf("replace user: %d %+v", resp.StatusCode, saved)
	}
	env.login("writer", replaced)

	resp = env.do(http.MethodPost, "/api/auth/login", map[string]any{
		"username": "writer", "password": patched, "testBypassToken": testBypass,
	}, nil)
	expectError(t, resp, http.StatusUnauthorized, "Invalid credentials")
}

func TestPrivilegeGuardIsSubsetCheck(t *testing.T) {
	env := newTestEnv(t, defaultLimits())
	admin := env.login("admin", testPassword)

	resp := env.authed(http.MethodPost, "/api/roles", admin, map[string]any{
		"name":       "auditor",
		"privileges": []string{env.privilegeID(auth.PrivUsersRead), env.privilegeID(auth.PrivRolesRead)},
	})
	role := decode[auth.RoleView](t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create role: %d", resp.StatusCode)
	}
	resp = env.authed(http.MethodPost, "/api/users", admin, map[string]any{
		"username": "audrey",
		"email":    "audrey@example.com",
		"password": testPassword,
		"role":     role.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user: %d", resp.StatusCode)
	}
	resp.Body.Close()

	auditor := env.login("audrey", testPassword)
	resp = env.authed(http.MethodGet, "/api/users", auditor, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with users.read, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.authed(http.MethodPost, "/api/privileges", auditor, map[string]any{"code": "x.y", "name": "X", "module": "x"})
	body := decode[errorResponse](t, resp)
	if resp.StatusCode != http.StatusForbidden || body.Message != "Insufficient privileges" {
		t.Fatalf("expected 403, got %d %q", resp.StatusCode, body.Message)
	}
	if len(body.Missing) != 1 || body.Missing[0] != auth.PrivPrivilegesCreate {
		t.Fatalf("unexpected missing list: %v", body.Missing)
	}

	// dropping users.read flips the same call to 403
	resp = env.authed(http.MethodPatch, "/api/roles/"+role.ID, admin, map[string]any{
		"privileges": []string{env.privilegeID(auth.PrivRolesRead)},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update role: %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = env.authed(http.MethodGet, "/api/users", auditor, nil)
	expectError(t, resp, http.StatusForbidden, "Insufficient privileges")
}
