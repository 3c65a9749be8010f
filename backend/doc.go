// SPDX-License-Identifier: EPL-2.0

// Package backend defines the contract between the blocking façade and a
// callback-driven audio server.
//
// A Backend opens a Client. A Client registers Ports, installs one
// ProcessFunc that the server calls once per period on its real-time thread,
// and wires ports together by full name ("client:port"). Physical hardware
// channels appear as ports with PortIsPhysical set:
//
//	playback := c.Ports(backend.PortIsPhysical | backend.PortIsInput)
//	capture := c.Ports(backend.PortIsPhysical | backend.PortIsOutput)
//
// Implementations live in the subpackages:
//   - backend/jack talks to a JACK server
//   - backend/loopback is an in-process server with a loopback cable from
//     playback to capture, for tests and machines without a server
//   - backend/oto plays through the default sound device, output only
package backend
