// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ik5/audbio/blockio"
)

func newPortsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "Register the configured ports and list them with their connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context(), a.cfg.Client.Inputs, a.cfg.Client.Outputs)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "client %s: %d Hz, period %d frames\n", s.Name(), s.SampleRate(), s.BufferSize())
			fmt.Fprintf(out, "physical sources: %d, physical destinations: %d\n",
				s.NumPhysicalSourcePorts(), s.NumPhysicalDestinationPorts())

			for i := range s.InPorts() {
				p, _ := s.InPort(i)
				printPort(out, p)
			}
			for i := range s.OutPorts() {
				p, _ := s.OutPort(i)
				printPort(out, p)
			}

			return nil
		},
	}
}

func printPort(out io.Writer, p blockio.AudioPort) {
	conns := "-"
	if len(p.Connections) > 0 {
		conns = strings.Join(p.Connections, ", ")
	}
	fmt.Fprintf(out, "%-6s %d %-20s %s\n", p.Direction, p.Index, p.Name, conns)
}
