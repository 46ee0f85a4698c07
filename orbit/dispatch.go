package orbit

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/vknair/orbit-rmi/registry"
	"github.com/vknair/orbit-rmi/transport"
)

// Receive implements transport.Listener. It is registered against every
// connection a Space attaches to, either directly (HostConn) or through
// a server's accept callback (HostServer).
func (s *Space) Receive(conn transport.Connection, frame transport.Frame) {
	switch f := frame.(type) {
	case *InvocationEvent:
		txnID, objectID, methodID, params := f.TransactionID, f.ObjectID, f.MethodID, f.Params
		f.Release()
		s.workers.Submit(func() {
			s.dispatchInvocation(conn, txnID, objectID, methodID, params)
		})
	case *ExecutionEvent:
		txnID, result, ok, errMsg := f.TransactionID, f.Result, f.OK, f.Err
		f.Release()
		if ok {
			s.pending.Post(txnID, result)
		} else {
			s.pending.Fail(txnID, errors.New(errMsg))
		}
	default:
		s.logger.Warnf("orbit: received unrecognized frame type %T", frame)
	}
}

// dispatchInvocation runs on a worker goroutine: it resolves the target
// object and method, decodes remotable arguments into proxies bound back
// to the caller, invokes the method by reflection, and replies unless
// the method's policy says not to. A NoReturn method gets no reply, not
// even a failure frame; only an unknown method id, whose policy cannot be
// looked up, is always answered with one.
func (s *Space) dispatchInvocation(conn transport.Connection, txnID, objectID, methodID int, params []interface{}) {
	method, ok := s.registry.MethodByID(methodID)
	if !ok {
		s.replyFailure(conn, txnID, objectID, methodID, false, ErrUnknownMethod)
		return
	}

	target, ok := s.hosts.Lookup(objectID)
	if !ok {
		if !method.Policy.NoReturn {
			s.replyFailure(conn, txnID, objectID, methodID, method.Policy.Unreliable, ErrUnknownObject)
		}
		return
	}

	args, err := s.resolveArgs(conn, method, params)
	if err != nil {
		if !method.Policy.NoReturn {
			s.replyFailure(conn, txnID, objectID, methodID, method.Policy.Unreliable, err)
		}
		return
	}

	result, callErr := s.callMethod(target, method, args)
	if method.Policy.NoReturn {
		return
	}
	if callErr != nil {
		s.replyFailure(conn, txnID, objectID, methodID, method.Policy.Unreliable, callErr)
		return
	}
	s.replySuccess(conn, txnID, objectID, methodID, method.Policy.Unreliable, s.resolveResultForWire(method, result))
}

// resolveArgs turns each remotable argument's hosted id back into a
// proxy bound to conn - the callee's view of "the object the caller
// hosts" - leaving every plain argument untouched.
func (s *Space) resolveArgs(conn transport.Connection, method *registry.Method, params []interface{}) ([]interface{}, error) {
	args := make([]interface{}, len(params))
	copy(args, params)
	for _, idx := range method.LocalParamIndices {
		if idx >= len(args) {
			continue
		}
		id, ok := args[idx].(int)
		if !ok || id < 0 {
			args[idx] = nil
			continue
		}
		proxy, err := s.CreateRemote(conn, id, method.Params[idx], nil)
		if err != nil {
			return nil, err
		}
		args[idx] = proxy
	}
	return args, nil
}

// callMethod invokes method on target by reflection, recovering a panic
// into an error the caller sees as a failed call instead of a crashed
// worker.
func (s *Space) callMethod(target interface{}, method *registry.Method, args []interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("orbit: method %s panicked: %v", method.Name, r)
		}
	}()

	fn := reflect.ValueOf(target).MethodByName(method.Name)
	if !fn.IsValid() {
		return nil, errors.Errorf("orbit: hosted object does not implement %s", method.Name)
	}

	in := make([]reflect.Value, len(args))
	fnType := fn.Type()
	for i, a := range args {
		if a == nil {
			in[i] = reflect.Zero(fnType.In(i))
			continue
		}
		in[i] = reflect.ValueOf(a)
	}

	out := fn.Call(in)
	if method.ReturnsError {
		last := out[len(out)-1]
		if !last.IsNil() {
			err = last.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 1 {
		result = out[0].Interface()
	}
	return result, err
}

// resolveResultForWire substitutes a remotable return value with its
// hosted object id, or -1 for nil, and leaves any other value untouched.
func (s *Space) resolveResultForWire(method *registry.Method, result interface{}) interface{} {
	if !method.IsRemoteReturn {
		return result
	}
	if result == nil {
		return -1
	}
	return s.hosts.EnsureHosted(result)
}

// replySuccess and replyFailure send the execution frame back on the
// same transport class the method was invoked with: an unreliable call
// gets an unreliable reply, matching the original RemoteSpace's
// invokeMethod, which replies through the same send path it dispatched
// on rather than always the reliable one.
func (s *Space) replySuccess(conn transport.Connection, txnID, objectID, methodID int, unreliable bool, result interface{}) {
	frame := obtainExecution(txnID, objectID, methodID, result, true, "")
	if err := sendFrame(conn, frame, unreliable); err != nil {
		s.logger.Warnf("orbit: failed to send execution frame for transaction %d: %v", txnID, err)
	}
}

func (s *Space) replyFailure(conn transport.Connection, txnID, objectID, methodID int, unreliable bool, failure error) {
	frame := obtainExecution(txnID, objectID, methodID, nil, false, failure.Error())
	if err := sendFrame(conn, frame, unreliable); err != nil {
		s.logger.Warnf("orbit: failed to send failure frame for transaction %d: %v", txnID, err)
	}
}

func sendFrame(conn transport.Connection, frame transport.Frame, unreliable bool) error {
	if unreliable {
		return conn.SendUnreliable(frame)
	}
	return conn.SendReliable(frame)
}
