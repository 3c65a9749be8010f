// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ik5/audbio/internal/config"
)

// app holds what the persistent flags resolve to.
type app struct {
	cfgFile  string
	duration time.Duration
	cfg      config.Config
	log      *slog.Logger

	// overrides, applied only when the flag was given
	backendName string
	name        string
	inputs      int
	outputs     int
	logLevel    string
}

// Execute runs the command line with os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "audbio",
		Short: "Blocking audio I/O over callback-driven audio servers",
		Long: `audbio registers a client with an audio server and moves samples
through its ports with plain blocking reads and writes.

Backends:
  jack      a running JACK server
  loopback  an in-process server whose playback channels feed its capture channels
  oto       the system audio device, output only

Examples:
  # A tone on the first two JACK playback channels
  audbio tone --frequency 220

  # Copy the sound card input to its output for ten seconds
  audbio passthru --duration 10s

  # Record the inputs into a WAV file until Ctrl-C
  audbio record take.wav

  # Turn an MP3 into 8 kHz mono WAV
  audbio convert song.mp3 phone.wav --rate 8000 --channels 1
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML configuration file")
	pf.StringVar(&a.backendName, "backend", "", "audio backend: jack, loopback or oto")
	pf.StringVar(&a.name, "name", "", "client name")
	pf.IntVar(&a.inputs, "inputs", 0, "number of input ports")
	pf.IntVar(&a.outputs, "outputs", 0, "number of output ports")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.DurationVar(&a.duration, "duration", 0, "stop after this long (0 runs until interrupted)")

	root.AddCommand(
		newToneCmd(a),
		newPassthruCmd(a),
		newPlayCmd(a),
		newRecordCmd(a),
		newPortsCmd(a),
		newConvertCmd(a),
	)

	return root
}

// init loads the configuration file, lays the flags over it and installs
// the logger.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = a.backendName
	}
	if flags.Changed("name") {
		cfg.Client.Name = a.name
	}
	if flags.Changed("inputs") {
		cfg.Client.Inputs = a.inputs
	}
	if flags.Changed("outputs") {
		cfg.Client.Outputs = a.outputs
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.log)
	a.cfg = cfg

	return nil
}

// runContext ends on SIGINT, SIGTERM or after --duration.
func (a *app) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if a.duration <= 0 {
		return ctx, stop
	}

	ctx, cancel := context.WithTimeout(ctx, a.duration)
	return ctx, func() {
		cancel()
		stop()
	}
}

// finished turns the context ending into a clean exit.
func finished(ctx context.Context, err error) error {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil
	}
	return err
}
