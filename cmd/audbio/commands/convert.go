// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ik5/audbio"
	"github.com/ik5/audbio/formats/wav"
)

// convert needs no audio server, so it skips the backend entirely.
func newConvertCmd(a *app) *cobra.Command {
	var rate, channels int

	cmd := &cobra.Command{
		Use:   "convert <input> <output.wav>",
		Short: "Resample and remix an audio file into a 16-bit WAV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := audbio.DefaultRegistry().Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			if rate <= 0 {
				rate = src.SampleRate()
			}
			if channels <= 0 {
				channels = src.Channels()
			}

			conv, err := audbio.Convert(src, rate, channels)
			if err != nil {
				return err
			}

			out, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[1], err)
			}
			defer out.Close()

			a.log.Info("converting", "from", args[0], "to", args[1],
				"src_rate", src.SampleRate(), "src_channels", src.Channels(),
				"rate", rate, "channels", channels)

			if err := wav.Encode(out, conv); err != nil {
				return err
			}

			return out.Close()
		},
	}

	cmd.Flags().IntVar(&rate, "rate", 0, "output sample rate (0 keeps the input rate)")
	cmd.Flags().IntVar(&channels, "channels", 0, "output channel count (0 keeps the input count)")

	return cmd
}
