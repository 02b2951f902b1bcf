package remote

import (
	"sync"

	"github.com/pkg/errors"
)

var errPipeClosed = errors.New("remote: pipe closed")

// Pipe returns two connected in-process transports backed by channels, one
// per direction. It stands in for the real out-of-process channel; both
// sides still communicate by message copies only.
func Pipe() (Transport, Transport) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	a := &pipeEnd{out: ab, in: ba}
	b := &pipeEnd{out: ba, in: ab}
	a.peer, b.peer = b, a
	return a, b
}

type pipeEnd struct {
	out  chan []byte
	in   chan []byte
	peer *pipeEnd

	mu     sync.Mutex
	closed bool
}

func (p *pipeEnd) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPipeClosed
	}
	p.out <- append([]byte(nil), data...)
	return nil
}

func (p *pipeEnd) Inbox() <-chan []byte { return p.in }

func (p *pipeEnd) Close() error {
	p.closeSend()
	p.peer.closeSend()
	return nil
}

func (p *pipeEnd) closeSend() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.out)
	}
}
