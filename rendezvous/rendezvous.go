// Package rendezvous pairs late-arriving execution events with the
// callers waiting on them. It is the runtime's only suspension point
// besides pool queue admission: everything else in the invocation path
// is non-blocking.
package rendezvous

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
)

// ErrTimeout is returned by Wait when no result arrives before the
// deadline, together with a nil value. A caller that discards the error
// cannot tell a timeout from a legitimately nil result.
var ErrTimeout = errors.New("rendezvous: timed out waiting for result")

// defaultGracePeriod bounds how long a result that arrived with no
// waiter is kept around. A waiter that already gave up and a result
// that arrives a moment later must not corrupt some future transaction
// that happens to reuse a stale delivered slot indefinitely.
const defaultGracePeriod = 30 * time.Second

type entry struct {
	value interface{}
	err   error
}

type waiter struct {
	ch chan entry
}

// Store is a thread-safe mailbox from transaction id to either a waiting
// caller or a buffered result, never both at once.
type Store struct {
	lock        deadlock.Mutex
	pending     map[int]*waiter
	delivered   map[int]entry
	gracePeriod time.Duration
}

// New returns a store with the default grace period for stale results.
func New() *Store {
	return NewWithGracePeriod(defaultGracePeriod)
}

// NewWithGracePeriod returns a store that forgets an unclaimed delivered
// result after grace has elapsed.
func NewWithGracePeriod(grace time.Duration) *Store {
	return &Store{
		pending:     make(map[int]*waiter),
		delivered:   make(map[int]entry),
		gracePeriod: grace,
	}
}

// Wait blocks until a result is posted for id or timeout elapses. A
// timeout of zero or less blocks indefinitely. On timeout the
// transaction is abandoned: a subsequent late Post for the same id is
// still accepted and buffered, subject to the grace period, but no one
// is waiting to receive it directly.
func (s *Store) Wait(id int, timeout time.Duration) (interface{}, error) {
	s.lock.Lock()
	if e, ok := s.delivered[id]; ok {
		delete(s.delivered, id)
		s.lock.Unlock()
		return e.value, e.err
	}
	w := &waiter{ch: make(chan entry, 1)}
	s.pending[id] = w
	s.lock.Unlock()

	var timerC <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timerC = t.C
	}

	select {
	case e := <-w.ch:
		return e.value, e.err
	case <-timerC:
		s.lock.Lock()
		if s.pending[id] == w {
			delete(s.pending, id)
		}
		s.lock.Unlock()
		return nil, ErrTimeout
	}
}

// Post delivers a successful result for id. A surplus post for an id
// whose result is still buffered and unread is dropped; the first one
// stays. A post arriving after the result was already read is buffered
// like any late result, subject to the grace period.
func (s *Store) Post(id int, value interface{}) {
	s.deliver(id, entry{value: value})
}

// Fail delivers a failure outcome for id, waking a blocked caller with
// err instead of a value. Used for protocol errors (unknown object or
// method) and for connection loss.
func (s *Store) Fail(id int, err error) {
	s.deliver(id, entry{err: err})
}

func (s *Store) deliver(id int, e entry) {
	s.lock.Lock()
	if w, ok := s.pending[id]; ok {
		delete(s.pending, id)
		s.lock.Unlock()
		select {
		case w.ch <- e:
		default:
			// Waiter already timed out and stopped listening between
			// the map check and the send; nothing to do.
		}
		return
	}
	if _, ok := s.delivered[id]; ok {
		s.lock.Unlock()
		return
	}
	s.delivered[id] = e
	s.lock.Unlock()

	grace := s.gracePeriod
	time.AfterFunc(grace, func() {
		s.lock.Lock()
		delete(s.delivered, id)
		s.lock.Unlock()
	})
}

// ContainsPending reports whether a caller is currently waiting on id.
func (s *Store) ContainsPending(id int) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.pending[id]
	return ok
}

// ContainsDelivered reports whether a result for id is buffered and
// waiting to be read.
func (s *Store) ContainsDelivered(id int) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.delivered[id]
	return ok
}

// AbandonAll calls Fail with err for each of ids: a caller waiting on one
// of them wakes with err, and an id with no waiter and no buffered result
// gets err buffered in place of a result. Used when a connection drops:
// every outstanding transaction on it must resolve promptly instead of
// waiting out its full timeout.
func (s *Store) AbandonAll(ids []int, err error) {
	for _, id := range ids {
		s.Fail(id, err)
	}
}
