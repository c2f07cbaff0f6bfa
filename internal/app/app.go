// Package app assembles the services shared by the gatehouse binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gatehouse.io/internal/auth"
	"gatehouse.io/internal/captcha"
	"gatehouse.io/internal/config"
	"gatehouse.io/internal/migrate"
	"gatehouse.io/internal/obs"
	"gatehouse.io/internal/store/sqlstore"
)

// App holds the constructed services. Close releases the database and Redis clients.
type App struct {
	Config  *config.Config
	Store   *sqlstore.Store
	RBAC    *auth.RBACService
	Auth    *auth.Service
	Captcha captcha.Manager
	Redis   *redis.Client
}

// Open connects to the database and builds every service. It does not
// migrate or seed; see Migrate and Bootstrap.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	store, err := sqlstore.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a := &App{Config: cfg, Store: store}

	hasher, err := auth.NewHasher(cfg.Auth.HashAlgorithm, cfg.Auth.BcryptCost)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.RBAC, err = auth.NewRBACService(store, hasher); err != nil {
		a.Close()
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret,
		auth.WithTokenIssuer(cfg.Auth.Issuer),
		auth.WithTokenTTL(cfg.Auth.TokenTTL),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.Auth, err = auth.NewService(store, hasher, tokens); err != nil {
		a.Close()
		return nil, err
	}

	cs, err := a.captchaStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Captcha, err = captcha.New(cfg.Captcha.Mode, cs, cfg.Captcha.BypassToken,
		captcha.WithTTL(cfg.Captcha.TTL),
		captcha.WithTokenTTL(cfg.Captcha.TokenTTL),
		captcha.WithLength(cfg.Captcha.Length),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// captchaStore returns the Redis-backed store when an address is configured
// and the in-process store otherwise.
func (a *App) captchaStore(ctx context.Context) (captcha.Store, error) {
	rc := a.Config.Redis
	if rc.Addr == "" {
		return captcha.NewMemoryStore(), nil
	}
	a.Redis = redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.Redis.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return captcha.NewRedisStore(a.Redis), nil
}

// Migrate applies every pending migration.
func (a *App) Migrate(ctx context.Context) error {
	m, err := migrate.NewManager(a.Store.DB(), string(a.Store.Dialect()))
	if err != nil {
		return err
	}
	return m.Up(ctx)
}

// Bootstrap seeds the privilege catalog, the superadmin role and the
// configured administrator, if any.
func (a *App) Bootstrap(ctx context.Context) (auth.Role, error) {
	var admin *auth.BootstrapAdmin
	if ac := a.Config.Admin; ac.Username != "" {
		admin = &auth.BootstrapAdmin{
			Username: ac.Username,
			Email:    ac.Email,
			Password: ac.Password,
		}
	}
	role, err := a.RBAC.Bootstrap(ctx, admin)
	if err != nil {
		return auth.Role{}, err
	}
	obs.Logger().WithField("role_id", role.ID).WithField("admin", admin != nil).Info("bootstrap complete")
	return role, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
