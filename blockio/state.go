// SPDX-License-Identifier: EPL-2.0

package blockio

// State is the lifecycle stage of a BlockingAudioIO.
type State int32

const (
	// Inactive: constructed, not started yet.
	Inactive State = iota
	// Active: the backend invokes the process callback every period.
	Active
	// Stopped: Stop was called. Terminal.
	Stopped
	// Disconnected: the audio server went away. Terminal.
	Disconnected
	// Closed: Close was called. Terminal.
	Closed
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Stopped:
		return "stopped"
	case Disconnected:
		return "disconnected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// err is what Read and Write report in state s.
func (s State) err() error {
	switch s {
	case Active:
		return nil
	case Inactive:
		return ErrNotStarted
	case Closed:
		return errClosedSession
	default:
		return ErrBackendDisconnected
	}
}
