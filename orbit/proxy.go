package orbit

import (
	"reflect"

	"github.com/vknair/orbit-rmi/transport"
)

// CreateRemote returns a Go value implementing iface that forwards calls
// to the object hosted at objectID on the other end of conn.
//
// If delegate is non-nil and its concrete type already implements iface
// in full, delegate itself is returned and no proxy or wire traffic is
// ever involved for this object id - whole-interface delegation, handing
// the runtime an object that answers for itself rather than one that
// needs a generated stand-in. Otherwise a stub is built from the factory
// registered for iface (see registry.WithStub); if none was registered,
// ErrNoStub is returned.
//
// A proxy is built at most once per (conn, objectID) pair. Later calls
// for the same pair return the cached value, so two references to the
// same remote object compare equal with ==.
func (s *Space) CreateRemote(conn transport.Connection, objectID int, iface reflect.Type, delegate interface{}) (interface{}, error) {
	if delegate != nil && reflect.TypeOf(delegate).Implements(iface) {
		return delegate, nil
	}

	s.proxyLock.Lock()
	defer s.proxyLock.Unlock()

	byObject, ok := s.proxies[conn]
	if !ok {
		byObject = make(map[int]interface{})
		s.proxies[conn] = byObject
	}
	if existing, ok := byObject[objectID]; ok {
		return existing, nil
	}

	factory, ok := s.registry.StubFor(iface)
	if !ok {
		return nil, ErrNoStub
	}

	inv := &remoteInvoker{
		space:    s,
		conn:     conn,
		objectID: objectID,
		iface:    iface,
		identity: s.registry.IdentityPolicyFor(iface),
		delegate: delegate,
	}
	proxy := factory(inv)
	byObject[objectID] = proxy
	s.attach(conn)
	return proxy, nil
}
