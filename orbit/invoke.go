package orbit

import (
	"reflect"

	"github.com/vknair/orbit-rmi/registry"
	"github.com/vknair/orbit-rmi/transport"
)

// remoteInvoker is the registry.Invoker every generated stub forwards
// through. It implements the whole outbound half of an invocation:
// identity delegation, policy dispatch, remotable argument promotion,
// transaction bookkeeping, and the three return shapes (fire-and-forget,
// deferred, blocking).
type remoteInvoker struct {
	space    *Space
	conn     transport.Connection
	objectID int
	iface    reflect.Type
	identity registry.IdentityPolicy
	delegate interface{}
}

func (inv *remoteInvoker) Invoke(methodName string, args []interface{}) (interface{}, error) {
	if d, ok := inv.delegate.(IdentityDelegate); ok {
		switch {
		case inv.identity.DelegateToString && methodName == "String":
			return d.DelegatesToString(), nil
		case inv.identity.DelegateHash && methodName == "Hash":
			return d.DelegatesHash(), nil
		}
	}

	method, ok := inv.space.registry.MethodByName(inv.iface, methodName)
	if !ok {
		return nil, ErrUnknownMethod
	}

	if method.Policy.Closed {
		return zeroOf(method), nil
	}

	params := promoteArgs(inv.space, method, args)
	txnID := inv.space.nextTransactionID()

	if method.Policy.NoReturn {
		if err := inv.send(method, txnID, params); err != nil {
			return zeroOf(method), err
		}
		return zeroOf(method), nil
	}

	if method.Policy.NonBlocking {
		inv.space.recordAsync(txnID, inv.conn, method)
		if err := inv.send(method, txnID, params); err != nil {
			inv.space.discardAsync(txnID)
			return zeroOf(method), err
		}
		return zeroOf(method), nil
	}

	inv.space.trackOutstanding(inv.conn, txnID)
	if err := inv.send(method, txnID, params); err != nil {
		inv.space.untrackOutstanding(inv.conn, txnID)
		return zeroOf(method), err
	}
	value, err := inv.space.pending.Wait(txnID, method.Policy.ResponseTimeout)
	inv.space.untrackOutstanding(inv.conn, txnID)
	if err != nil {
		if method.ReturnsError {
			return zeroOf(method), err
		}
		// No error return declared: a timeout is indistinguishable from
		// a legitimately null result to this caller.
		return zeroOf(method), nil
	}
	return inv.space.resolveRemoteResult(inv.conn, method, value), nil
}

// send builds the invocation frame and hands it to the transport class
// the method's policy names. The frame is never released here: both
// transport implementations may still be holding the pointer on another
// goroutine (the mock transport's unreliable path, and both transports'
// receive-side pump) after this call returns, so reuse is left to the
// garbage collector rather than risking a pooled frame mutating out from
// under an in-flight send.
func (inv *remoteInvoker) send(method *registry.Method, txnID int, params []interface{}) error {
	frame := obtainInvocation(txnID, inv.objectID, method.ID, params)
	if method.Policy.Unreliable {
		return inv.conn.SendUnreliable(frame)
	}
	return inv.conn.SendReliable(frame)
}

// promoteArgs substitutes each remotable argument with its hosted object
// id (or -1 for a nil interface value), leaving every other argument
// untouched.
func promoteArgs(s *Space, method *registry.Method, args []interface{}) []interface{} {
	params := make([]interface{}, len(args))
	copy(params, args)
	for _, idx := range method.LocalParamIndices {
		if idx >= len(params) {
			continue
		}
		if params[idx] == nil {
			params[idx] = -1
			continue
		}
		params[idx] = s.hosts.EnsureHosted(params[idx])
	}
	return params
}

func zeroOf(method *registry.Method) interface{} {
	if method.Return == nil {
		return nil
	}
	return reflect.Zero(method.Return).Interface()
}

// resolveRemoteResult turns a decoded ExecutionEvent result back into
// the value a caller expects: unchanged for a plain value, or a proxy
// bound to conn when the method's declared return is itself remotable.
func (s *Space) resolveRemoteResult(conn transport.Connection, method *registry.Method, value interface{}) interface{} {
	if !method.IsRemoteReturn {
		return value
	}
	id, ok := value.(int)
	if !ok || id < 0 {
		return reflect.Zero(method.Return).Interface()
	}
	proxy, err := s.CreateRemote(conn, id, method.Return, nil)
	if err != nil {
		return reflect.Zero(method.Return).Interface()
	}
	return proxy
}
