package orbit

import (
	"sync/atomic"
	"time"

	"github.com/vknair/orbit-rmi/registry"
	"github.com/vknair/orbit-rmi/transport"
)

func (s *Space) recordAsync(txnID int, conn transport.Connection, method *registry.Method) {
	s.asyncLock.Lock()
	s.async[txnID] = asyncExecution{conn: conn, method: method, timeout: method.Policy.ResponseTimeout}
	s.asyncLock.Unlock()
}

func (s *Space) discardAsync(txnID int) {
	s.asyncLock.Lock()
	delete(s.async, txnID)
	s.asyncLock.Unlock()
}

func (s *Space) takeAsync(txnID int) (asyncExecution, bool) {
	s.asyncLock.Lock()
	defer s.asyncLock.Unlock()
	a, ok := s.async[txnID]
	if ok {
		delete(s.async, txnID)
	}
	return a, ok
}

// abandonAsyncOn removes and returns every transaction id issued on conn
// whose result GetResult has not yet claimed, so a connection drop makes
// a later GetResult for it fail at once with ErrNoAsyncResult instead of
// blocking forever.
func (s *Space) abandonAsyncOn(conn transport.Connection) []int {
	s.asyncLock.Lock()
	defer s.asyncLock.Unlock()
	var ids []int
	for id, a := range s.async {
		if a.conn == conn {
			ids = append(ids, id)
			delete(s.async, id)
		}
	}
	return ids
}

// GetResult retrieves the outcome of a previously issued non-blocking
// call, blocking until it arrives or a timeout elapses. The caller may
// pass an extra timeout to extend how long it is willing to wait beyond
// the method's own response timeout; the longer of the two governs the
// wait, and either one being unbounded (<=0) makes the wait unbounded.
// Passing no extra timeout waits exactly as long as the method's own
// policy dictates. A transaction id is good for exactly one GetResult:
// once claimed, successfully or not, it is forgotten.
func (s *Space) GetResult(txnID int, timeout ...time.Duration) (interface{}, error) {
	async, ok := s.takeAsync(txnID)
	if !ok {
		return nil, ErrNoAsyncResult
	}
	wait := async.timeout
	if len(timeout) > 0 {
		wait = maxWait(wait, timeout[0])
	}
	s.trackOutstanding(async.conn, txnID)
	value, err := s.pending.Wait(txnID, wait)
	s.untrackOutstanding(async.conn, txnID)
	if err != nil {
		return nil, err
	}
	return s.resolveRemoteResult(async.conn, async.method, value), nil
}

// GetLastResult is GetResult for the most recent transaction this Space
// issued. See nextTransactionID's caveat: it is only meaningful when the
// caller knows no other goroutine issued an intervening call.
func (s *Space) GetLastResult(timeout ...time.Duration) (interface{}, error) {
	return s.GetResult(int(atomic.LoadInt64(&s.lastTxnID)), timeout...)
}

// maxWait returns the longer of two wait durations, where <=0 means
// unbounded and an unbounded wait always wins.
func maxWait(a, b time.Duration) time.Duration {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > b {
		return a
	}
	return b
}

// HasResult reports whether a result for txnID has already arrived and
// is waiting to be collected with GetResult.
func (s *Space) HasResult(txnID int) bool {
	return s.pending.ContainsDelivered(txnID)
}

// HasLastResult is HasResult for the most recently issued transaction.
func (s *Space) HasLastResult() bool {
	return s.HasResult(int(atomic.LoadInt64(&s.lastTxnID)))
}
