package captcha

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"gatehouse.io/internal/obs"
)

// MockAnswer is the fixed answer of every mock challenge.
const MockAnswer = "MOCK42"

// Mock is the non-interactive Manager for test harnesses. Sessions still go
// through the store so one-time use holds, but the answer is always
// MockAnswer and a configured bypass token is accepted without consumption.
type Mock struct {
	*Service
	bypass string
}

func NewMock(store Store, bypassToken string, opts ...Option) (*Mock, error) {
	svc, err := NewService(store, opts...)
	if err != nil {
		return nil, err
	}
	svc.answer = func(int) (string, error) { return MockAnswer, nil }
	svc.renderer = RendererFunc(func(answer string) (string, error) {
		return "mock:" + answer, nil
	})
	return &Mock{Service: svc, bypass: strings.TrimSpace(bypassToken)}, nil
}

func (m *Mock) Verify(ctx context.Context, p Proof) (bool, error) {
	if m.bypass != "" && p.BypassToken != "" &&
		subtle.ConstantTimeCompare([]byte(p.BypassToken), []byte(m.bypass)) == 1 {
		obs.ObserveCaptcha("bypass", true)
		return true, nil
	}
	return m.Service.Verify(ctx, p)
}

// New builds the Manager for mode ("image" or "mock").
func New(mode string, store Store, bypassToken string, opts ...Option) (Manager, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "image":
		svc, err := NewService(store, opts...)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case "mock":
		m, err := NewMock(store, bypassToken, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown captcha mode %q", mode)
	}
}
