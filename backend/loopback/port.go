// SPDX-License-Identifier: EPL-2.0

package loopback

import "github.com/ik5/audbio/backend"

type port struct {
	srv   *Server
	owner *Client // nil for system ports
	short string
	name  string
	flags backend.PortFlags
	buf   []float32
}

var _ backend.Port = (*port)(nil)

func (p *port) Name() string             { return p.name }
func (p *port) ShortName() string        { return p.short }
func (p *port) Flags() backend.PortFlags { return p.flags }

func (p *port) Buffer(nframes uint32) []float32 {
	if int(nframes) > len(p.buf) {
		nframes = uint32(len(p.buf))
	}
	return p.buf[:nframes]
}

// Connections takes the server lock; it must not be called from a process
// callback.
func (p *port) Connections() []string {
	p.srv.mu.Lock()
	defer p.srv.mu.Unlock()

	return p.srv.connectionsLocked(p)
}
