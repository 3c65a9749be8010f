// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"github.com/spf13/cobra"

	"github.com/ik5/audbio"
)

func newToneCmd(a *app) *cobra.Command {
	var freq, gain float64

	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Write a swelling sine wave to every output port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("frequency") {
				a.cfg.Tone.Frequency = freq
			}
			if cmd.Flags().Changed("gain") {
				a.cfg.Tone.Gain = gain
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := a.runContext(cmd.Context())
			defer cancel()

			s, err := a.open(ctx, a.cfg.Client.Inputs, a.cfg.Client.Outputs)
			if err != nil {
				return err
			}
			defer s.Close()

			a.log.Info("playing tone", "frequency", a.cfg.Tone.Frequency, "gain", a.cfg.Tone.Gain,
				"ports", s.OutPorts(), "sample_rate", s.SampleRate())

			tone := audbio.Tone(s.SampleRate(), s.OutPorts(), a.cfg.Tone.Frequency, a.cfg.Tone.Gain)
			return finished(ctx, audbio.Play(ctx, s, tone))
		},
	}

	cmd.Flags().Float64Var(&freq, "frequency", 440, "tone frequency in Hz")
	cmd.Flags().Float64Var(&gain, "gain", 1, "peak amplitude in [0, 1]")

	return cmd
}
