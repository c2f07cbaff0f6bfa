package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"gatehouse.io/internal/captcha"
)

func newCaptchaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captcha",
		Short: "CAPTCHA administration",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newCaptchaTokenCommand())
	return cmd
}

// newCaptchaTokenCommand issues a validation token into the shared Redis
// store so a running service instance will accept it.
func newCaptchaTokenCommand() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a one-time CAPTCHA validation token for a trusted caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Redis.Addr == "" {
				return errors.New("captcha token requires GATEHOUSE_REDIS_ADDR: in-memory challenges are private to each process")
			}
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer rdb.Close()

			svc, err := captcha.NewService(captcha.NewRedisStore(rdb), captcha.WithTokenTTL(cfg.Captcha.TokenTTL))
			if err != nil {
				return err
			}
			token, exp, err := svc.IssueValidationToken(cmd.Context(), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires %s\n", token, exp.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to the configured token TTL)")
	return cmd
}
