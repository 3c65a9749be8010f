// SPDX-License-Identifier: EPL-2.0

// Command audbio drives audio servers through the blocking port façade.
//
// Usage:
//
//	audbio [flags] <command> [args]
//
// Commands:
//
//	tone      write a swelling sine to every output port
//	passthru  copy every input port to the matching output port
//	play      play an audio file (wav, aiff, flac, mp3, ogg)
//	record    record the input ports into a WAV file
//	ports     list the client's ports and connections
//	convert   resample and remix a file into WAV
//
// The audio commands run until interrupted unless --duration is given.
package main

import (
	"fmt"
	"os"

	"github.com/ik5/audbio/cmd/audbio/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
