// SPDX-License-Identifier: EPL-2.0

package blockio

// process runs on the server's real-time thread. It takes no locks, does not
// allocate and does not log.
func (b *BlockingAudioIO) process(nframes uint32) error {
	for _, ch := range b.inputs {
		buf := ch.port.Buffer(nframes)
		if n := ch.ring.Write(buf); n < len(buf) {
			b.overruns.Add(uint64(len(buf) - n))
		}
	}

	for _, ch := range b.outputs {
		buf := ch.port.Buffer(nframes)
		if n := ch.ring.Read(buf); n < len(buf) {
			clear(buf[n:])
			b.underruns.Add(uint64(len(buf) - n))
		}
	}

	b.periods.Add(1)

	for _, ch := range b.inputs {
		ch.wake()
	}
	for _, ch := range b.outputs {
		ch.wake()
	}

	return nil
}
