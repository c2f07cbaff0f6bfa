package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gatehouse.io/internal/audit"
	"gatehouse.io/internal/auth"
	"gatehouse.io/internal/captcha"
	"gatehouse.io/internal/obs"
)

type loginRequest struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	CaptchaSessionID string `json:"captchaSessionId"`
	CaptchaText      string `json:"captchaText"`
	CaptchaToken     string `json:"captchaToken"`
	TestBypassToken  string `json:"testBypassToken"`
}

func (req loginRequest) proof() captcha.Proof {
	return captcha.Proof{
		SessionID:   req.CaptchaSessionID,
		Text:        req.CaptchaText,
		Token:       req.CaptchaToken,
		BypassToken: req.TestBypassToken,
	}
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      auth.UserView `json:"user"`
}

type captchaTokenRequest struct {
	TTLSeconds int `json:"ttlSeconds" validate:"gte=0,lte=86400"`
}

type captchaTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (a *API) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	ch, err := a.captcha.CreateChallenge(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

// handleLogin checks fields, then the proof of human, then credentials.
// Every CAPTCHA failure and every credential failure collapses to one message.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(req.Username)
	switch {
	case username == "" && req.Password == "":
		writeError(w, r, http.StatusBadRequest, "Username and password are required")
		return
	case username == "":
		writeError(w, r, http.StatusBadRequest, "Username is required")
		return
	case req.Password == "":
		writeError(w, r, http.StatusBadRequest, "Password is required")
		return
	}

	proof := req.proof()
	if proof.Empty() {
		obs.ObserveLogin("captcha_required")
		fail(w, r, auth.ErrCaptchaRequired)
		return
	}
	ok, err := a.captcha.Verify(r.Context(), proof)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !ok {
		obs.ObserveLogin("invalid_captcha")
		fail(w, r, auth.ErrInvalidCaptcha)
		return
	}

	res, err := a.auth.Login(r.Context(), username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.ObserveLogin("invalid_credentials")
			_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
				"username":  username,
				"remote_ip": a.ips.clientIP(r),
			})
		}
		fail(w, r, err)
		return
	}
	obs.ObserveLogin("success")
	ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{User: res.User.User})
	_ = audit.LogEvent(ctx, "auth.login.succeeded", map[string]any{
		"username":  res.User.Username,
		"remote_ip": a.ips.clientIP(r),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.User,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, msgNoToken)
		return
	}
	view, err := a.auth.View(r.Context(), principal.User)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleIssueCaptchaToken mints a one-time validation token for trusted
// machine callers. The body is optional.
func (a *API) handleIssueCaptchaToken(w http.ResponseWriter, r *http.Request) {
	var req captchaTokenRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		fail(w, r, err)
		return
	}
	token, exp, err := a.captcha.IssueValidationToken(r.Context(), time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		fail(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "captcha.token.issued", map[string]any{
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
	writeJSON(w, http.StatusCreated, captchaTokenResponse{Token: token, ExpiresAt: exp})
}

func (a *API) handlePasswordRequirements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"minLength":    auth.PasswordMinLength,
		"maxLength":    auth.PasswordMaxLength,
		"requirements": auth.PasswordRequirements(),
	})
}
