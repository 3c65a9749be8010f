// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ik5/audbio/audio"
	"github.com/ik5/audbio/formats/wav"
	"github.com/ik5/audbio/internal/audiotest"
	"github.com/ik5/audbio/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, logs bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetArgs(append(args, "--backend", "loopback", "--log-level", "error"))

	err := cmd.Execute()
	return out.String(), err
}

func TestPorts(t *testing.T) {
	t.Parallel()

	out, err := run(t, "ports", "--inputs", "1", "--outputs", "2", "--name", "lister")
	if err != nil {
		t.Fatalf("ports error = %v", err)
	}

	for _, want := range []string{
		"client lister: 48000 Hz, period 256 frames",
		"physical sources: 2, physical destinations: 2",
		"lister:input0",
		"system:capture_1",
		"lister:output1",
		"system:playback_2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ports output missing %q:\n%s", want, out)
		}
	}
}

func TestPorts_ConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audbio.yaml")
	doc := "client:\n  name: fromfile\n  inputs: 0\n  outputs: 1\nconnect:\n  physical: false\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "ports", "--config", path)
	if err != nil {
		t.Fatalf("ports error = %v", err)
	}
	if !strings.Contains(out, "fromfile:output0") || strings.Contains(out, "system:playback_1") {
		t.Errorf("ports output does not reflect the config file:\n%s", out)
	}
}

func TestTone(t *testing.T) {
	t.Parallel()

	if _, err := run(t, "tone", "--duration", "30ms", "--frequency", "220", "--gain", "0.5"); err != nil {
		t.Errorf("tone error = %v", err)
	}
	if _, err := run(t, "tone", "--gain", "2"); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("tone --gain 2 error = %v, want ErrInvalid", err)
	}
}

func TestPassthru(t *testing.T) {
	t.Parallel()

	if _, err := run(t, "passthru", "--duration", "30ms"); err != nil {
		t.Errorf("passthru error = %v", err)
	}
}

func TestRecord(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "take.wav")
	if _, err := run(t, "record", path, "--frames", "300", "--inputs", "2"); err != nil {
		t.Fatalf("record error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	src, err := wav.Decoder{}.Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", src.Channels())
	}

	var total int
	buf := make([]float32, 256)
	for {
		n, err := src.ReadSamples(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if total != 600 {
		t.Errorf("recorded %d samples, want 600", total)
	}
}

func TestPlay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	// 20 ms of mono tone at a rate the server has to convert
	if err := wav.Encode(f, audiotest.NewSineSource(16000, 1, 320, 440)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := run(t, "play", path, "--outputs", "2"); err != nil {
		t.Errorf("play error = %v", err)
	}
}

func TestPlay_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if _, err := run(t, "play", filepath.Join(dir, "song.xyz")); !errors.Is(err, audio.ErrUnknownFormat) {
		t.Errorf("play song.xyz error = %v, want ErrUnknownFormat", err)
	}
	if _, err := run(t, "play", filepath.Join(dir, "missing.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("play missing.wav error = %v, want ErrNotExist", err)
	}
	if _, err := run(t, "play"); err == nil {
		t.Error("play without a file error = nil, want error")
	}
}

func TestInvalidBackend(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"ports", "--backend", "alsa"})

	if err := cmd.Execute(); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("--backend alsa error = %v, want ErrInvalid", err)
	}
}

func TestConvert(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")

	f, err := os.Create(in)
	if err != nil {
		t.Fatal(err)
	}
	if err := wav.Encode(f, audiotest.NewSineSource(16000, 2, 16000, 440)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := run(t, "convert", in, out, "--rate", "8000", "--channels", "1"); err != nil {
		t.Fatalf("convert error = %v", err)
	}

	g, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	src, err := wav.Decoder{}.Decode(g)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.SampleRate() != 8000 || src.Channels() != 1 {
		t.Errorf("format = %d Hz %d ch, want 8000 Hz 1 ch", src.SampleRate(), src.Channels())
	}
}
