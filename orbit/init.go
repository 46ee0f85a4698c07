package orbit

import "github.com/vknair/orbit-rmi/transport"

func init() {
	transport.RegisterWireType(&InvocationEvent{})
	transport.RegisterWireType(&ExecutionEvent{})
}
