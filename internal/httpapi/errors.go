package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"gatehouse.io/internal/auth"
	"gatehouse.io/internal/obs"
)

type errorResponse struct {
	Message   string   `json:"message"`
	RequestID string   `json:"request_id,omitempty"`
	Missing   []string `json:"missing,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorResponse{
		Message:   msg,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// fail maps a service error onto the HTTP error taxonomy. Protection
// violations keep their specific message; internal errors are logged and
// reported opaquely.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		conflict *auth.ConflictError
		missing  *auth.MissingPrivilegesError
	)
	switch {
	case errors.As(err, &conflict):
		writeError(w, r, http.StatusBadRequest, conflict.Error())
	case errors.As(err, &missing):
		writeJSON(w, http.StatusForbidden, errorResponse{
			Message:   msgForbidden,
			RequestID: middleware.GetReqID(r.Context()),
			Missing:   missing.Missing,
		})
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusBadRequest, auth.Detail(err))
	case errors.Is(err, auth.ErrCaptchaRequired):
		writeError(w, r, http.StatusBadRequest, "CAPTCHA verification required")
	case errors.Is(err, auth.ErrInvalidCaptcha):
		writeError(w, r, http.StatusBadRequest, "Invalid CAPTCHA")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, auth.Detail(err))
	case errors.Is(err, auth.ErrNotFound):
		msg := auth.Detail(err)
		if msg == auth.ErrNotFound.Error() {
			msg = "Resource not found"
		}
		writeError(w, r, http.StatusNotFound, msg)
	default:
		obs.Logger().WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).
			WithField("path", r.URL.Path).Error("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

var errEmptyBody = errors.New("Request body is required")

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("Request body too large")
		}
		return fmt.Errorf("Invalid JSON body: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("Unexpected data after JSON body")
	}
	return nil
}

// requestValidator wraps validator/v10 and reports fields by their JSON names.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Struct(s any) error {
	err := rv.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", auth.ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: %s", auth.ErrInvalidInput, fieldMessage(verrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// decodeAndValidate decodes the body into dst and validates it, writing
// the 400 itself on failure.
func (a *API) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		fail(w, r, err)
		return false
	}
	return true
}
