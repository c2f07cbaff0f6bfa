package captcha

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gatehouse.io/internal/ids"
	"gatehouse.io/internal/obs"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultTokenTTL = 10 * time.Minute
	DefaultLength   = 6
)

// Challenge is handed to the client; the answer stays server-side.
type Challenge struct {
	SessionID string `json:"sessionId"`
	Image     string `json:"image"`
}

// Proof carries whichever proof-of-human artifact the client submitted.
type Proof struct {
	SessionID   string
	Text        string
	Token       string
	BypassToken string
}

// Empty reports whether no proof mechanism was supplied at all.
func (p Proof) Empty() bool {
	return strings.TrimSpace(p.Token) == "" &&
		strings.TrimSpace(p.BypassToken) == "" &&
		strings.TrimSpace(p.SessionID) == "" &&
		strings.TrimSpace(p.Text) == ""
}

// Manager issues and verifies challenges. Verify reports false for every
// rejected proof without saying why.
type Manager interface {
	CreateChallenge(ctx context.Context) (Challenge, error)
	Verify(ctx context.Context, p Proof) (bool, error)
	IssueValidationToken(ctx context.Context, ttl time.Duration) (string, time.Time, error)
	Clear(ctx context.Context) error
}

// Service is the image-based Manager.
type Service struct {
	store    Store
	renderer Renderer
	ttl      time.Duration
	tokenTTL time.Duration
	length   int
	now      func() time.Time
	answer   func(length int) (string, error)
}

// Option configures Service.
type Option func(*Service) error

func WithTTL(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return errors.New("captcha ttl must be positive")
		}
		s.ttl = d
		return nil
	}
}

func WithTokenTTL(d time.Duration) Option {
	return func(s *Service) error {
		if d <= 0 {
			return errors.New("captcha token ttl must be positive")
		}
		s.tokenTTL = d
		return nil
	}
}

func WithLength(n int) Option {
	return func(s *Service) error {
		if n < 4 || n > 12 {
			return fmt.Errorf("captcha length %d out of range [4,12]", n)
		}
		s.length = n
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

func WithRenderer(r Renderer) Option {
	return func(s *Service) error {
		if r != nil {
			s.renderer = r
		}
		return nil
	}
}

func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("captcha store is required")
	}
	s := &Service{
		store:    store,
		renderer: DefaultRenderer,
		ttl:      DefaultTTL,
		tokenTTL: DefaultTokenTTL,
		length:   DefaultLength,
		now:      time.Now,
		answer:   ids.Answer,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CreateChallenge stores a fresh session and purges expired entries.
func (s *Service) CreateChallenge(ctx context.Context) (Challenge, error) {
	now := s.now()
	if _, err := s.store.Purge(ctx, now); err != nil {
		obs.Logger().WithError(err).Warn("captcha purge failed")
	}

	id, err := ids.Secret()
	if err != nil {
		return Challenge{}, fmt.Errorf("captcha session id: %w", err)
	}
	answer, err := s.answer(s.length)
	if err != nil {
		return Challenge{}, fmt.Errorf("captcha answer: %w", err)
	}
	img, err := s.renderer.Render(answer)
	if err != nil {
		return Challenge{}, fmt.Errorf("captcha render: %w", err)
	}
	if err := s.store.PutSession(ctx, id, Entry{Answer: answer, ExpiresAt: now.Add(s.ttl)}, s.ttl); err != nil {
		return Challenge{}, fmt.Errorf("captcha store: %w", err)
	}
	return Challenge{SessionID: id, Image: img}, nil
}

// Verify accepts a live validation token, otherwise a session id and text.
// A session found in the store is consumed whatever the outcome.
func (s *Service) Verify(ctx context.Context, p Proof) (bool, error) {
	now := s.now()
	if tok := strings.TrimSpace(p.Token); tok != "" {
		e, ok, err := s.store.TakeToken(ctx, tok)
		if err != nil {
			return false, err
		}
		if ok && !e.Expired(now) {
			obs.ObserveCaptcha("token", true)
			return true, nil
		}
	}

	id := strings.TrimSpace(p.SessionID)
	text := strings.TrimSpace(p.Text)
	if id == "" || text == "" {
		obs.ObserveCaptcha("session", false)
		return false, nil
	}
	e, ok, err := s.store.TakeSession(ctx, id)
	if err != nil {
		return false, err
	}
	match := ok && !e.Expired(now) && strings.EqualFold(e.Answer, text)
	obs.ObserveCaptcha("session", match)
	return match, nil
}

// IssueValidationToken mints a one-time token for a trusted caller. A
// non-positive ttl uses the configured default.
func (s *Service) IssueValidationToken(ctx context.Context, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = s.tokenTTL
	}
	tok, err := ids.Secret()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("captcha token: %w", err)
	}
	exp := s.now().Add(ttl)
	if err := s.store.PutToken(ctx, tok, Entry{ExpiresAt: exp}, ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("captcha store: %w", err)
	}
	return tok, exp, nil
}

func (s *Service) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}
