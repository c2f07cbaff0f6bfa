package config

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/crypto/bcrypt"
)

// DevJWTSecret is accepted outside production only.
const DevJWTSecret = "gatehouse-dev-secret-change-me"

func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	switch cfg.Env {
	case "development", "test", "production":
	default:
		return fmt.Errorf("unsupported env: %s", cfg.Env)
	}
	switch cfg.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver: %s", cfg.DB.Driver)
	}
	if cfg.DB.DSN == "" {
		return errors.New("db dsn must be set")
	}
	switch cfg.Auth.HashAlgorithm {
	case "bcrypt":
		if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
			return fmt.Errorf("bcrypt cost must be within [%d,%d]", bcrypt.MinCost, bcrypt.MaxCost)
		}
	case "argon2id", "argon2":
	default:
		return fmt.Errorf("unsupported hash algorithm: %s", cfg.Auth.HashAlgorithm)
	}
	if cfg.Auth.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	switch cfg.Captcha.Mode {
	case "image", "mock":
	default:
		return fmt.Errorf("unsupported captcha mode: %s", cfg.Captcha.Mode)
	}
	if cfg.Captcha.TTL <= 0 || cfg.Captcha.TokenTTL <= 0 {
		return errors.New("captcha ttl and token ttl must be positive")
	}
	if cfg.Captcha.Length < 4 || cfg.Captcha.Length > 12 {
		return errors.New("captcha length must be within [4,12]")
	}
	l := cfg.Limits
	if l.PublicWindow <= 0 || l.SubmissionWindow <= 0 {
		return errors.New("rate limit windows must be positive")
	}
	if l.PublicMax <= 0 || l.SubmissionMax <= 0 || l.LoginBurst <= 0 || l.LoginPerSecond <= 0 {
		return errors.New("rate limits must be positive")
	}
	for _, p := range cfg.HTTP.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("invalid trusted proxy %q", p)
			}
		}
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.IsProduction() {
			return errors.New("jwt secret must be set in production")
		}
		cfg.Auth.JWTSecret = DevJWTSecret
	}
	if cfg.IsProduction() {
		if cfg.Auth.JWTSecret == DevJWTSecret || len(cfg.Auth.JWTSecret) < 32 {
			return errors.New("jwt secret must be at least 32 characters and not the development default")
		}
		if cfg.Captcha.Mode == "mock" {
			return errors.New("mock captcha is not allowed in production")
		}
		if cfg.Captcha.BypassToken != "" {
			return errors.New("test bypass token is not allowed in production")
		}
	}
	return nil
}
