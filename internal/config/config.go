package config

import (
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	configPathEnv = "GATEHOUSE_CONFIG"
	dotenvPathEnv = "GATEHOUSE_DOTENV"
)

// Config is the full service configuration.
type Config struct {
	Env string `yaml:"env" env:"GATEHOUSE_ENV" env-default:"development"`

	HTTPAddr string `yaml:"http_addr" env:"GATEHOUSE_HTTP_ADDR" env-default:":8080"`
	GRPCAddr string `yaml:"grpc_addr" env:"GATEHOUSE_GRPC_ADDR"`

	DB      DBConfig      `yaml:"db"`
	Redis   RedisConfig   `yaml:"redis"`
	Auth    AuthConfig    `yaml:"auth"`
	Captcha CaptchaConfig `yaml:"captcha"`
	Limits  LimitsConfig  `yaml:"limits"`
	HTTP    HTTPConfig    `yaml:"http"`
	Admin   AdminConfig   `yaml:"bootstrap_admin"`
	Log     LogConfig     `yaml:"log"`
}

type DBConfig struct {
	Driver string `yaml:"driver" env:"GATEHOUSE_DB_DRIVER" env-default:"postgres"`
	DSN    string `yaml:"dsn" env:"GATEHOUSE_DB_DSN"`
}

// RedisConfig selects the shared challenge store. An empty Addr keeps
// challenges in process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"GATEHOUSE_REDIS_ADDR"`
	Password string `yaml:"password" env:"GATEHOUSE_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"GATEHOUSE_REDIS_DB"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret" env:"GATEHOUSE_JWT_SECRET"`
	Issuer        string        `yaml:"issuer" env:"GATEHOUSE_JWT_ISSUER" env-default:"gatehouse"`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"GATEHOUSE_TOKEN_TTL" env-default:"24h"`
	HashAlgorithm string        `yaml:"hash_algorithm" env:"GATEHOUSE_HASH_ALGORITHM" env-default:"bcrypt"`
	BcryptCost    int           `yaml:"bcrypt_cost" env:"GATEHOUSE_BCRYPT_COST" env-default:"12"`
}

type CaptchaConfig struct {
	Mode        string        `yaml:"mode" env:"GATEHOUSE_CAPTCHA_MODE" env-default:"image"`
	TTL         time.Duration `yaml:"ttl" env:"GATEHOUSE_CAPTCHA_TTL" env-default:"5m"`
	Length      int           `yaml:"length" env:"GATEHOUSE_CAPTCHA_LENGTH" env-default:"6"`
	TokenTTL    time.Duration `yaml:"token_ttl" env:"GATEHOUSE_CAPTCHA_TOKEN_TTL" env-default:"10m"`
	BypassToken string        `yaml:"test_bypass_token" env:"GATEHOUSE_TEST_BYPASS_TOKEN"`
}

type LimitsConfig struct {
	PublicWindow     time.Duration `yaml:"public_window" env:"GATEHOUSE_PUBLIC_WINDOW" env-default:"15m"`
	PublicMax        int           `yaml:"public_max" env:"GATEHOUSE_PUBLIC_MAX" env-default:"100"`
	SubmissionWindow time.Duration `yaml:"submission_window" env:"GATEHOUSE_SUBMISSION_WINDOW" env-default:"15m"`
	SubmissionMax    int           `yaml:"submission_max" env:"GATEHOUSE_SUBMISSION_MAX" env-default:"10"`
	LoginBurst       int           `yaml:"login_burst" env:"GATEHOUSE_LOGIN_BURST" env-default:"10"`
	LoginPerSecond   int           `yaml:"login_per_second" env:"GATEHOUSE_LOGIN_PER_SECOND" env-default:"2"`
}

type HTTPConfig struct {
	CORSOrigins    []string `yaml:"cors_origins" env:"GATEHOUSE_CORS_ORIGINS" env-separator:","`
	TrustedProxies []string `yaml:"trusted_proxies" env:"GATEHOUSE_TRUSTED_PROXIES" env-separator:","`
	MaxBodyBytes   int64    `yaml:"max_body_bytes" env:"GATEHOUSE_MAX_BODY_BYTES" env-default:"1048576"`
}

// AdminConfig describes an optional administrator seeded at startup.
type AdminConfig struct {
	Username string `yaml:"username" env:"GATEHOUSE_ADMIN_USERNAME"`
	Email    string `yaml:"email" env:"GATEHOUSE_ADMIN_EMAIL"`
	Password string `yaml:"password" env:"GATEHOUSE_ADMIN_PASSWORD"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"GATEHOUSE_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"GATEHOUSE_LOG_FORMAT" env-default:"json"`
}

func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// Load reads .env (if present), then the optional YAML file named by
// GATEHOUSE_CONFIG, then environment variables, and validates the result.
func Load() (*Config, error) {
	dotenv := strings.TrimSpace(os.Getenv(dotenvPathEnv))
	if dotenv == "" {
		dotenv = ".env"
	}
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if path := strings.TrimSpace(os.Getenv(configPathEnv)); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func normalize(cfg *Config) {
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.DB.DSN = strings.TrimSpace(cfg.DB.DSN)
	cfg.Redis.Addr = strings.TrimSpace(cfg.Redis.Addr)
	cfg.Auth.JWTSecret = strings.TrimSpace(cfg.Auth.JWTSecret)
	cfg.Auth.HashAlgorithm = strings.ToLower(strings.TrimSpace(cfg.Auth.HashAlgorithm))
	cfg.Captcha.Mode = strings.ToLower(strings.TrimSpace(cfg.Captcha.Mode))
	cfg.Captcha.BypassToken = strings.TrimSpace(cfg.Captcha.BypassToken)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.HTTP.CORSOrigins = trimAll(cfg.HTTP.CORSOrigins)
	cfg.HTTP.TrustedProxies = trimAll(cfg.HTTP.TrustedProxies)
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
