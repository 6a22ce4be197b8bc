package ctl

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/securefiles/internal/server/auth"
	"github.com/dmitrijs2005/securefiles/internal/server/config"
	"github.com/spf13/cobra"
)

// newTokenCmd mints a bearer token for smoke tests. The signing secret comes
// from JWT_SECRET only and must pass the same checks as the server's.
func newTokenCmd() *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user id",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			c := config.Config{JWTSecret: os.Getenv("JWT_SECRET")}
			key, err := c.JWTKey()
			if err != nil {
				return err
			}
			tok, err := auth.GenerateToken(user, key, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id to put in the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	return cmd
}
