package orbit

import "sync"

// InvocationEvent is the request frame: a call, encoded for the wire.
// Remotable parameters have already been substituted with their object
// id (or -1 for null) by the time this leaves the outbound invoker.
type InvocationEvent struct {
	TransactionID int
	ObjectID      int
	MethodID      int
	Params        []interface{}
}

// ExecutionEvent is the response frame. OK is false when the callee
// could not complete the call (unknown object/method, an argument that
// could not be turned back into a proxy, the target method panicked, or
// it returned a non-nil error); in that case Err carries a description
// and Result is unused. A remotable result has already been substituted with its
// object id (or -1 for null).
type ExecutionEvent struct {
	TransactionID int
	ObjectID      int
	MethodID      int
	Result        interface{}
	OK            bool
	Err           string
}

var invocationPool = sync.Pool{New: func() interface{} { return new(InvocationEvent) }}
var executionPool = sync.Pool{New: func() interface{} { return new(ExecutionEvent) }}

func obtainInvocation(txnID, objectID, methodID int, params []interface{}) *InvocationEvent {
	ie := invocationPool.Get().(*InvocationEvent)
	ie.TransactionID = txnID
	ie.ObjectID = objectID
	ie.MethodID = methodID
	ie.Params = params
	return ie
}

// Release returns the event to its pool. Consumers must not touch it
// again afterward. Correctness never depends on this being called -
// forgetting to release one just means the pool allocates a fresh one
// next time - but tests should verify no frame escapes a completed
// transaction still referenced anywhere.
func (ie *InvocationEvent) Release() {
	ie.Params = nil
	invocationPool.Put(ie)
}

func obtainExecution(txnID, objectID, methodID int, result interface{}, ok bool, errMsg string) *ExecutionEvent {
	ee := executionPool.Get().(*ExecutionEvent)
	ee.TransactionID = txnID
	ee.ObjectID = objectID
	ee.MethodID = methodID
	ee.Result = result
	ee.OK = ok
	ee.Err = errMsg
	return ee
}

// Release returns the event to its pool.
func (ee *ExecutionEvent) Release() {
	ee.Result = nil
	executionPool.Put(ee)
}
