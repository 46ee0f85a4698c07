package orbit

import (
	"github.com/pkg/errors"
	"github.com/vknair/orbit-rmi/rendezvous"
)

// ErrTimeout is returned by a blocking call (and by GetResult) when no
// execution event arrives before the method's response timeout expires.
// A caller cannot tell it apart from a legitimately null result unless
// the target interface's method also returns an error, in which case
// this value is exactly what is returned there.
var ErrTimeout = rendezvous.ErrTimeout

// ErrConnectionClosed is delivered to every waiter with a transaction
// outstanding on a connection that drops.
var ErrConnectionClosed = errors.New("orbit: connection closed")

// ErrUnknownObject means an inbound invocation frame named an object id
// nothing is currently hosted at.
var ErrUnknownObject = errors.New("orbit: no object hosted at that id")

// ErrUnknownMethod means an inbound invocation frame named a method id
// the registry has no record of.
var ErrUnknownMethod = errors.New("orbit: unknown method id")

// ErrNoStub means CreateRemote was asked for an interface that was
// registered without a stub factory, so no Go value implementing it can
// be synthesized. See RegisterRemotable's WithStub option.
var ErrNoStub = errors.New("orbit: no proxy stub registered for this interface")

// ErrNoAsyncResult means GetResult was called for a transaction id that
// was never issued as a non-blocking call, or whose result was already
// collected.
var ErrNoAsyncResult = errors.New("orbit: no pending async result for that transaction")
