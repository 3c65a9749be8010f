// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"github.com/spf13/cobra"

	"github.com/ik5/audbio"
)

func newPlayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play <file>",
		Short: "Play an audio file on the output ports",
		Long: `Play decodes the file, converts it to the server's sample rate and spreads
or folds its channels over the output ports. Only output ports are
registered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := audbio.DefaultRegistry().Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()

			s, err := a.open(ctx, 0, a.cfg.Client.Outputs)
			if err != nil {
				return err
			}
			defer s.Close()

			a.log.Info("playing", "file", args[0], "sample_rate", src.SampleRate(), "channels", src.Channels())

			if err := audbio.Play(ctx, s, src); err != nil {
				return finished(ctx, err)
			}

			// let the last buffered samples reach the server
			return finished(ctx, s.Drain(ctx))
		},
	}
}
