package orbit

import (
	"reflect"

	"github.com/vknair/orbit-rmi/registry"
	"github.com/vknair/orbit-rmi/transport"
)

// registerParamWireTypes tells the wire codec about every concrete
// (non-interface) parameter and return type currently known to r, so a
// struct argument gob has never seen before can still round-trip inside
// an InvocationEvent/ExecutionEvent's []interface{} payload. Remotable
// interface types never need this: they travel as a plain int object
// id, never as themselves. Re-scanning the full method set on every
// RegisterRemotable call is cheap - registration happens a handful of
// times at startup, never on a hot path - and gob.Register tolerates
// being called more than once for the same type.
func registerParamWireTypes(r *registry.Registry) {
	for _, m := range r.AllMethods() {
		for _, pt := range m.Params {
			registerWireType(pt)
		}
		if m.Return != nil {
			registerWireType(m.Return)
		}
	}
}

func registerWireType(t reflect.Type) {
	if t.Kind() == reflect.Interface {
		return
	}
	transport.RegisterWireType(reflect.Zero(t).Interface())
}
