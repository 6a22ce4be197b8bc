// Package ctl implements securefilectl, the operator CLI for maintenance
// tasks that do not belong on the request path.
package ctl

import (
	"context"

	"github.com/dmitrijs2005/securefiles/internal/server"
	"github.com/spf13/cobra"
)

// Opener builds the components a command needs. The caller closes them.
type Opener func(ctx context.Context) (*server.Components, error)

// NewRootCmd returns the securefilectl command tree.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "securefilectl",
		Short: "Maintenance commands for the secure file store",
		Long: `Operator commands for the secure file store: key rotation completion,
schema migrations and test token issuance. Configuration is read the same way
as the server: defaults, then -c <file.json>, then environment, then flags.`,
		SilenceUsage: true,
		// server flags such as -d or -m are parsed by the config package
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	}

	root.AddCommand(newReencryptCmd(open))
	root.AddCommand(newMigrateCmd(open))
	root.AddCommand(newTokenCmd())

	return root
}
