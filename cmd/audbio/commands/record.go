// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ik5/audbio"
)

func newRecordCmd(a *app) *cobra.Command {
	var frames int

	cmd := &cobra.Command{
		Use:   "record <file.wav>",
		Short: "Record the input ports into a 16-bit WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			defer f.Close()

			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()

			s, err := a.open(ctx, a.cfg.Client.Inputs, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			a.log.Info("recording", "file", args[0], "ports", s.InPorts(), "sample_rate", s.SampleRate())

			if err := finished(ctx, audbio.RecordWAV(ctx, s, f, frames)); err != nil {
				return err
			}

			return f.Close()
		},
	}

	cmd.Flags().IntVar(&frames, "frames", 0, "stop after this many frames (0 records until stopped)")

	return cmd
}
