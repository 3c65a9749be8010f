// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"github.com/spf13/cobra"

	"github.com/ik5/audbio"
)

func newPassthruCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passthru",
		Short: "Copy input port i to output port i",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()

			s, err := a.open(ctx, a.cfg.Client.Inputs, a.cfg.Client.Outputs)
			if err != nil {
				return err
			}
			defer s.Close()

			return finished(ctx, audbio.Passthrough(ctx, s))
		},
	}
}
