package registry

import "time"

// Policy is the set of call-policy attributes attached to a method at
// registration time. The zero value is the default: blocking, reliable,
// no timeout.
type Policy struct {
	// Unreliable routes the invocation over the transport's unordered
	// class instead of its reliable class.
	Unreliable bool

	// NoReturn makes the call fire-and-forget: no execution frame is
	// sent by the callee and the caller never waits.
	NoReturn bool

	// NonBlocking defers the result: the caller gets a zero value
	// immediately and must retrieve the real result later with
	// GetResult.
	NonBlocking bool

	// Closed silently elides the call. No frame is ever sent; the
	// caller gets the zero value immediately. Useful for disabling a
	// remotable operation without touching either peer's registration
	// order.
	Closed bool

	// ResponseTimeout bounds how long a blocking caller waits for the
	// execution frame. Zero or negative means unbounded.
	ResponseTimeout time.Duration
}

// IdentityPolicy controls whether a proxy's universal-base operations
// (String, Hash) are answered locally by a supplied delegate instead of
// round-tripping to the remote object. It is attached to the interface
// as a whole at registration time, not through any one method's Policy;
// String and Hash, where the interface declares them, are still
// registered as ordinary methods.
type IdentityPolicy struct {
	DelegateToString bool
	DelegateHash     bool
}

// Invoker is the minimal surface a generated or hand-written proxy stub
// needs: turn a method name and argument list into a call across the
// wire (or a local delegate call) and get a result or error back. It is
// declared here, rather than in package orbit, so a stub factory can be
// registered alongside its interface without creating an import cycle
// between registry and orbit.
type Invoker interface {
	Invoke(methodName string, args []interface{}) (interface{}, error)
}

// StubFactory builds a concrete Go value implementing a registered
// interface, forwarding every method through inv. This is the
// idiomatic-Go stand-in for java.lang.reflect.Proxy.newProxyInstance:
// Go has no way to synthesize a value satisfying an arbitrary interface
// at runtime, so the caller supplies, once per interface, the small
// generated-or-handwritten stub that does it.
type StubFactory func(inv Invoker) interface{}

// Option customizes registration of a single remotable type.
type Option func(*registerOptions)

type registerOptions struct {
	policies map[string]Policy
	excluded map[string]bool
	stub     StubFactory
	identity IdentityPolicy
}

func newRegisterOptions() *registerOptions {
	return &registerOptions{
		policies: make(map[string]Policy),
		excluded: make(map[string]bool),
	}
}

// WithStub attaches the proxy stub factory CreateRemote will use to
// produce a value implementing this interface.
func WithStub(fn StubFactory) Option {
	return func(o *registerOptions) { o.stub = fn }
}

// WithIdentityDelegation sets the interface-wide policy for whether a
// proxy's String/Hash-style operations are answered by a delegate.
func WithIdentityDelegation(p IdentityPolicy) Option {
	return func(o *registerOptions) { o.identity = p }
}

// WithPolicy attaches a non-default call policy to the named method.
// This is the idiomatic-Go stand-in for the annotation-driven policy
// attributes described for each cached method: since Go interface
// methods carry no metadata of their own, policy is supplied alongside
// the type at the single call site that registers it.
func WithPolicy(methodName string, p Policy) Option {
	return func(o *registerOptions) {
		o.policies[methodName] = p
	}
}

// Exclude removes a method from the remotable set even though it is a
// public, instance-level method of the interface. Mirrors the "marked
// non-remotable" filter in the method enumeration rule.
func Exclude(methodName string) Option {
	return func(o *registerOptions) {
		o.excluded[methodName] = true
	}
}
