package service

import "sync"

// mailbox runs posted functions one at a time, in posting order, on a
// single goroutine. Posting never blocks.
type mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	busy    bool
	pending int
	closed  bool
	done    chan struct{}
}

func newMailbox() *mailbox {
	m := &mailbox{done: make(chan struct{})}
	m.cond = sync.NewCond(&m.mu)
	go m.run()
	return m
}

// post enqueues fn. It returns false once the mailbox is closed.
func (m *mailbox) post(fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.queue = append(m.queue, fn)
	m.cond.Broadcast()
	return true
}

// track counts outstanding work that will post later, such as a backend
// load in flight. settle waits for it.
func (m *mailbox) track(delta int) {
	m.mu.Lock()
	m.pending += delta
	m.mu.Unlock()
	m.cond.Broadcast()
}

// settle blocks until the queue is drained, nothing is running and no
// tracked work is outstanding, or until the mailbox is closed.
func (m *mailbox) settle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.closed && (len(m.queue) > 0 || m.busy || m.pending > 0) {
		m.cond.Wait()
	}
}

// close stops the mailbox. Queued functions that did not start are dropped.
func (m *mailbox) close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		m.queue = nil
	}
	m.mu.Unlock()
	m.cond.Broadcast()
	<-m.done
}

func (m *mailbox) run() {
	defer close(m.done)
	for {
		m.mu.Lock()
		for !m.closed && len(m.queue) == 0 {
			m.cond.Wait()
		}
		if m.closed {
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		m.busy = true
		m.mu.Unlock()

		fn()

		m.mu.Lock()
		m.busy = false
		m.mu.Unlock()
		m.cond.Broadcast()
	}
}
