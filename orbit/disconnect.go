package orbit

import "github.com/vknair/orbit-rmi/transport"

// trackOutstanding records that txnID is in flight on conn, before the
// invocation frame is even sent, so a connection that drops in the
// narrow window between send and Wait still gets the transaction
// abandoned rather than left to hang out its full (possibly unbounded)
// response timeout.
func (s *Space) trackOutstanding(conn transport.Connection, txnID int) {
	s.outstandingLock.Lock()
	defer s.outstandingLock.Unlock()
	set, ok := s.outstanding[conn]
	if !ok {
		set = make(map[int]bool)
		s.outstanding[conn] = set
	}
	set[txnID] = true
}

func (s *Space) untrackOutstanding(conn transport.Connection, txnID int) {
	s.outstandingLock.Lock()
	defer s.outstandingLock.Unlock()
	if set, ok := s.outstanding[conn]; ok {
		delete(set, txnID)
		if len(set) == 0 {
			delete(s.outstanding, conn)
		}
	}
}

func (s *Space) takeOutstanding(conn transport.Connection) []int {
	s.outstandingLock.Lock()
	defer s.outstandingLock.Unlock()
	set, ok := s.outstanding[conn]
	if !ok {
		return nil
	}
	delete(s.outstanding, conn)
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// Disconnected implements transport.Disconnectable. Every connection
// implementation that supports drop notification calls this on the
// listener it was registered with, if the listener supports it, exactly
// once per connection. It wakes every caller blocked on conn - a blocking
// call or a GetResult already waiting - with ErrConnectionClosed, and
// abandons every deferred non-blocking result on conn not yet claimed, so
// a later GetResult for it returns ErrNoAsyncResult. Either way no waiter
// is left hanging indefinitely behind an unbounded response timeout just
// because the connection it was counting on went away. The proxies
// cached for conn are dropped as well.
func (s *Space) Disconnected(conn transport.Connection) {
	s.proxyLock.Lock()
	delete(s.proxies, conn)
	s.proxyLock.Unlock()

	ids := s.takeOutstanding(conn)
	ids = append(ids, s.abandonAsyncOn(conn)...)
	if len(ids) == 0 {
		return
	}
	s.pending.AbandonAll(ids, ErrConnectionClosed)
}
