// Package audit records security-relevant actions such as logins and RBAC writes.
package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"gatehouse.io/internal/auth"
	"gatehouse.io/internal/obs"
)

type ctxKey struct{}

// reserved keys cannot be overwritten by caller-supplied fields.
var reserved = map[string]bool{
	"type": true, "event": true, "request_id": true,
	"actor_id": true, "actor": true, "msg": true, "level": true, "ts": true,
}

// WithRequestID attaches the request identifier for later audit entries.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id = strings.TrimSpace(id); id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// LogEvent writes one audit entry. Caller fields are flattened into the entry;
// colliding keys are prefixed with "field.".
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("audit: event name is required")
	}
	entry := make(logrus.Fields, len(fields)+5)
	for k, v := range fields {
		if reserved[k] {
			k = "field." + k
		}
		entry[k] = v
	}
	entry["type"] = "audit"
	entry["event"] = event
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if id, name, ok := auth.ActorFromContext(ctx); ok {
		entry["actor_id"] = id
		entry["actor"] = name
	}
	obs.Logger().WithFields(entry).Info(event)
	return nil
}
