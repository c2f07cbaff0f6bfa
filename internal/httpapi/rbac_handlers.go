package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatehouse.io/internal/audit"
	"gatehouse.io/internal/auth"
)

type createPrivilegeRequest struct {
	Code              string `json:"code" validate:"required,max=100"`
	Name              string `json:"name" validate:"required,max=100"`
	Description       string `json:"description" validate:"max=500"`
	Module            string `json:"module" validate:"required,max=50"`
	ModuleDisplayName string `json:"moduleDisplayName" validate:"max=100"`
	IsActive          *bool  `json:"isActive"`
}

type updatePrivilegeRequest struct {
	Code              *string `json:"code" validate:"omitempty,max=100"`
	Name              *string `json:"name" validate:"omitempty,max=100"`
	Description       *string `json:"description" validate:"omitempty,max=500"`
	Module            *string `json:"module" validate:"omitempty,max=50"`
	ModuleDisplayName *string `json:"moduleDisplayName" validate:"omitempty,max=100"`
	IsActive          *bool   `json:"isActive"`
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Privileges  []string `json:"privileges" validate:"dive,required"`
	IsActive    *bool    `json:"isActive"`
}

type updateRoleRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	Privileges  *[]string `json:"privileges" validate:"omitempty,dive,required"`
	IsActive    *bool     `json:"isActive"`
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
	FullName string `json:"fullName" validate:"max=100"`
	IsActive *bool  `json:"isActive"`
}

// replaceUserRequest is the full-save body; an omitted password keeps the current one.
type replaceUserRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password"`
	Role     string `json:"role" validate:"required"`
	FullName string `json:"fullName" validate:"max=100"`
	IsActive *bool  `json:"isActive"`
}

type patchUserRequest struct {
	Username *string `json:"username" validate:"omitempty,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	FullName *string `json:"fullName" validate:"omitempty,max=100"`
	IsActive *bool   `json:"isActive"`
}

func (a *API) mountPrivileges(r chi.Router) {
	r.Route("/privileges", func(r chi.Router) {
		r.With(a.requirePrivileges(auth.PrivPrivilegesRead)).Get("/", a.listPrivileges)
		r.With(a.requirePrivileges(auth.PrivPrivilegesCreate)).Post("/", a.createPrivilege)
		r.With(a.requirePrivileges(auth.PrivPrivilegesRead)).Get("/{id}", a.getPrivilege)
		r.With(a.requirePrivileges(auth.PrivPrivilegesUpdate)).Put("/{id}", a.updatePrivilege)
		r.With(a.requirePrivileges(auth.PrivPrivilegesUpdate)).Patch("/{id}", a.updatePrivilege)
		r.With(a.requirePrivileges(auth.PrivPrivilegesDelete)).Delete("/{id}", a.deletePrivilege)
	})
}

func (a *API) mountRoles(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.With(a.requirePrivileges(auth.PrivRolesRead)).Get("/", a.listRoles)
		r.With(a.requirePrivileges(auth.PrivRolesCreate)).Post("/", a.createRole)
		r.With(a.requirePrivileges(auth.PrivRolesRead)).Get("/{id}", a.getRole)
		r.With(a.requirePrivileges(auth.PrivRolesUpdate)).Put("/{id}", a.updateRole)
		r.With(a.requirePrivileges(auth.PrivRolesUpdate)).Patch("/{id}", a.updateRole)
		r.With(a.requirePrivileges(auth.PrivRolesDelete)).Delete("/{id}", a.deleteRole)
	})
}

func (a *API) mountUsers(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.With(a.requirePrivileges(auth.PrivUsersRead)).Get("/", a.listUsers)
		r.With(a.requirePrivileges(auth.PrivUsersCreate)).Post("/", a.createUser)
		r.With(a.requirePrivileges(auth.PrivUsersRead)).Get("/{id}", a.getUser)
		r.With(a.requirePrivileges(auth.PrivUsersUpdate)).Put("/{id}", a.replaceUser)
		r.With(a.requirePrivileges(auth.PrivUsersUpdate)).Patch("/{id}", a.patchUser)
		r.With(a.requirePrivileges(auth.PrivUsersDelete)).Delete("/{id}", a.deleteUser)
	})
}

// --- privileges ---

func (a *API) listPrivileges(w http.ResponseWriter, r *http.Request) {
	privs, err := a.rbac.ListPrivileges(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, privs)
}

func (a *API) createPrivilege(w http.ResponseWriter, r *http.Request) {
	var req createPrivilegeRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p, err := a.rbac.CreatePrivilege(r.Context(), auth.Privilege{
		Code:              req.Code,
		Name:              req.Name,
		Description:       req.Description,
		Module:            req.Module,
		ModuleDisplayName: req.ModuleDisplayName,
		IsActive:          active,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.privilege.create", map[string]any{"privilege_id": p.ID, "code": p.Code})
	w.Header().Set("Location", "/api/privileges/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) getPrivilege(w http.ResponseWriter, r *http.Request) {
	p, err := a.rbac.GetPrivilege(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) updatePrivilege(w http.ResponseWriter, r *http.Request) {
	var req updatePrivilegeRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	p, err := a.rbac.UpdatePrivilege(r.Context(), id, auth.PrivilegeUpdate{
		Code:              req.Code,
		Name:              req.Name,
		Description:       req.Description,
		Module:            req.Module,
		ModuleDisplayName: req.ModuleDisplayName,
		IsActive:          req.IsActive,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.privilege.update", map[string]any{"privilege_id": p.ID})
	writeJSON(w, http.StatusOK, p)
}

func (a *API) deletePrivilege(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.rbac.DeletePrivilege(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.privilege.delete", map[string]any{"privilege_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// --- roles ---

func (a *API) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := a.rbac.ListRoles(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (a *API) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	role, err := a.rbac.CreateRole(r.Context(), req.Name, req.Description, req.Privileges, req.IsActive)
	if err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.role.create", map[string]any{
		"role_id":    role.ID,
		"name":       role.Name,
		"privileges": len(role.Privileges),
	})
	w.Header().Set("Location", "/api/roles/"+role.ID)
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) getRole(w http.ResponseWriter, r *http.Request) {
	role, err := a.rbac.GetRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) updateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	role, err := a.rbac.UpdateRole(r.Context(), chi.URLParam(r, "id"), auth.RoleUpdate{
		Name:         req.Name,
		Description:  req.Description,
		PrivilegeIDs: req.Privileges,
		IsActive:     req.IsActive,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.role.update", map[string]any{"role_id": role.ID})
	writeJSON(w, http.StatusOK, role)
}

func (a *API) deleteRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.rbac.DeleteRole(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.role.delete", map[string]any{"role_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// --- users ---

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.rbac.ListUsers(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	user, err := a.rbac.CreateUser(r.Context(), auth.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.Role,
		FullName: req.FullName,
		IsActive: req.IsActive,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.user.create", map[string]any{"target_user_id": user.ID, "role_id": user.RoleID})
	w.Header().Set("Location", "/api/users/"+user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.rbac.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	view, err := a.auth.View(r.Context(), user)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) replaceUser(w http.ResponseWriter, r *http.Request) {
	var req replaceUserRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	user, err := a.rbac.ReplaceUser(r.Context(), chi.URLParam(r, "id"), auth.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.Role,
		FullName: req.FullName,
		IsActive: req.IsActive,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.user.replace", map[string]any{
		"target_user_id":   user.ID,
		"password_changed": req.Password != "",
	})
	writeJSON(w, http.StatusOK, user)
}

func (a *API) patchUser(w http.ResponseWriter, r *http.Request) {
	var req patchUserRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	user, err := a.rbac.PatchUser(r.Context(), chi.URLParam(r, "id"), auth.UserUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.Role,
		IsActive: req.IsActive,
		FullName: req.FullName,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.user.update", map[string]any{
		"target_user_id":   user.ID,
		"password_changed": req.Password != nil,
	})
	writeJSON(w, http.StatusOK, user)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.rbac.DeleteUser(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.user.delete", map[string]any{"target_user_id": id})
	w.WriteHeader(http.StatusNoContent)
}
