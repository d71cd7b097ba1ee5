package peer

import (
	"sync"

	"github.com/progrium/wsetp-go/codec"
)

// mailbox is an unbounded FIFO of event frames waiting for delivery.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frames []*codec.Frame
	closed bool
	ended  bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) put(f *codec.Frame) {
	m.mu.Lock()
	if !m.closed && !m.ended {
		m.frames = append(m.frames, f)
	}
	m.mu.Unlock()
	m.cond.Signal()
}

// take blocks for the next frame. It returns false once the mailbox is
// closed, or once it has ended and every queued frame was taken.
func (m *mailbox) take() (*codec.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.frames) == 0 && !m.closed && !m.ended {
		m.cond.Wait()
	}
	if m.closed || len(m.frames) == 0 {
		return nil, false
	}
	f := m.frames[0]
	m.frames[0] = nil
	m.frames = m.frames[1:]
	return f, true
}

// end stops accepting frames but keeps the queued ones for take.
func (m *mailbox) end() {
	m.mu.Lock()
	m.ended = true
	m.mu.Unlock()
	m.cond.Broadcast()
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.frames = nil
	m.mu.Unlock()
	m.cond.Broadcast()
}
