package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/doozitravel/gateway/internal/reconcile"
)

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "reconcile user|application",
		Short:     "Print the canonical form of a backend reply read from stdin",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"user", "application"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cobra.OnlyValidArgs(cmd, args); err != nil {
				return err
			}
			p, err := reconcile.Decode(cmd.InOrStdin())
			if err != nil {
				return err
			}

			var out reconcile.Payload
			if args[0] == "user" {
				out = reconcile.ReconcileUser(p).Payload()
			} else {
				out = reconcile.ReconcileApplication(p).Payload()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
