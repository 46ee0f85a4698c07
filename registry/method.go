package registry

import "reflect"

// Method is the cached, canonical description of one remotable
// operation: everything the invoker and the dispatcher need to encode a
// call, decode it, and route the result. Only the method id crosses the
// wire; the name stays local to each peer.
type Method struct {
	ID     int
	Owner  reflect.Type // the interface type this method was declared on
	Name   string
	Params []reflect.Type
	Return reflect.Type // nil for a method with no value return

	// IsRemoteReturn is true iff Return is itself a registered
	// remotable interface.
	IsRemoteReturn bool

	// LocalParamIndices lists the positions in Params whose declared
	// type is a registered remotable interface; those slots travel on
	// the wire as an object id, never as the value itself.
	LocalParamIndices []int

	// ReturnsError is true when the interface method's last result is
	// the built-in error type. It is not part of Params/Return; it is
	// the channel an application-level failure on the callee comes back
	// through, so a caller never confuses a legitimate nil remote
	// result with a failed call.
	ReturnsError bool

	Policy Policy
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// isRemotableKind reports whether t is eligible to be treated as a
// remote reference: any interface type other than the built-in error.
func isRemotableKind(t reflect.Type) bool {
	return t.Kind() == reflect.Interface && t != errorType
}

// compareMethods totally orders two methods of the same declaring type
// by name, then arity, then parameter type name, matching the canonical
// comparator. Go forbids overloaded interface methods, so two distinct
// methods on the same interface never reach the tie-break rules below;
// they exist to make that guarantee an explicit, checked invariant
// rather than an assumption.
func compareMethods(a, b reflect.Method) int {
	if a.Name != b.Name {
		if a.Name < b.Name {
			return -1
		}
		return 1
	}
	an, bn := a.Type.NumIn(), b.Type.NumIn()
	if an != bn {
		if an < bn {
			return -1
		}
		return 1
	}
	for i := 0; i < an; i++ {
		pa, pb := a.Type.In(i).String(), b.Type.In(i).String()
		if pa != pb {
			if pa < pb {
				return -1
			}
			return 1
		}
	}
	return 0
}
