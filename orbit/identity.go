package orbit

// IdentityDelegate lets a caller-supplied delegate answer a proxy's
// universal-base identity operations locally, without a round trip to
// the remote object. It is only consulted when the interface was
// registered with a registry.IdentityPolicy asking for it; a delegate
// that does not implement this is simply never asked.
type IdentityDelegate interface {
	DelegatesToString() string
	DelegatesHash() int
}
