package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gatehouse.io/internal/auth"
)

func newPasswordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Password policy and hashing helpers",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(newPasswordCheckCommand(), newPasswordHashCommand(), newPasswordRulesCommand())
	return cmd
}

func newPasswordCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [password]",
		Short: "Report whether a password satisfies the policy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordArg(cmd, args)
			if err != nil {
				return err
			}
			res := auth.ValidatePassword(pw)
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if !res.IsValid {
				return errors.New("password rejected")
			}
			return nil
		},
	}
}

func newPasswordHashCommand() *cobra.Command {
	var (
		algorithm string
		cost      int
	)
	cmd := &cobra.Command{
		Use:   "hash [password]",
		Short: "Print a digest for a policy-compliant password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordArg(cmd, args)
			if err != nil {
				return err
			}
			if res := auth.ValidatePassword(pw); !res.IsValid {
				return errors.New(res.Message)
			}
			hasher, err := auth.NewHasher(algorithm, cost)
			if err != nil {
				return err
			}
			digest, err := hasher.Hash(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}
	cmd.Flags().StringVar(&algorithm, "algorithm", "bcrypt", "hash algorithm (bcrypt or argon2id)")
	cmd.Flags().IntVar(&cost, "cost", 12, "bcrypt cost")
	return cmd
}

func newPasswordRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the password requirements",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), auth.FormatPasswordRequirements())
		},
	}
}

// passwordArg takes the password from the argument or, when absent, the
// first line of stdin.
func passwordArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return line, nil
}
