// Package orbit is the runtime-context value the rest of this
// repository is built around: one Space per peer, holding the type and
// method registry, the host table, one proxy cache per connection, the
// rendezvous store, and the worker pool that runs dispatched
// invocations. Nothing here is a process global; every dependency an
// application has on the runtime flows through a *Space it constructed
// itself, the explicit-runtime-context redesign of what would otherwise
// be shared mutable state.
package orbit

import (
	"reflect"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vknair/orbit-rmi/hosttable"
	"github.com/vknair/orbit-rmi/registry"
	"github.com/vknair/orbit-rmi/rendezvous"
	"github.com/vknair/orbit-rmi/transport"

	"github.com/sasha-s/go-deadlock"
)

// Space is a single peer's RMI runtime.
type Space struct {
	registry *registry.Registry
	hosts    *hosttable.Table
	pending  *rendezvous.Store
	workers  *workerPool
	logger   *logrus.Entry

	txnCounter int64
	lastTxnID  int64

	proxyLock deadlock.Mutex
	proxies   map[transport.Connection]map[int]interface{}

	asyncLock deadlock.Mutex
	async     map[int]asyncExecution

	attachedLock    deadlock.Mutex
	attachedConns   map[transport.Connection]bool
	attachedServers map[transport.Server]bool

	outstandingLock deadlock.Mutex
	outstanding     map[transport.Connection]map[int]bool
}

type asyncExecution struct {
	conn    transport.Connection
	method  *registry.Method
	timeout time.Duration
}

// Option configures a new Space.
type Option func(*Space)

// WithWorkers sets the worker pool size. The default is one, which
// serializes every dispatched invocation and guarantees execution
// frames complete in submission order.
func WithWorkers(n int) Option {
	return func(s *Space) { s.workers = newWorkerPool(n, s.logger) }
}

// WithLogger attaches a structured logger. Every subsystem logs through
// it, the same one-entry-per-runtime pattern the reference peer used.
func WithLogger(logger *logrus.Entry) Option {
	return func(s *Space) { s.logger = logger }
}

// WithGracePeriod overrides how long the rendezvous store keeps an
// unclaimed result before forgetting it.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Space) { s.pending = rendezvous.NewWithGracePeriod(d) }
}

// New returns a Space with a single worker and a default logrus logger
// writing to stderr, unless options say otherwise.
func New(opts ...Option) *Space {
	s := &Space{
		registry:        registry.New(),
		hosts:           hosttable.New(),
		pending:         rendezvous.New(),
		logger:          logrus.NewEntry(logrus.New()),
		proxies:         make(map[transport.Connection]map[int]interface{}),
		async:           make(map[int]asyncExecution),
		attachedConns:   make(map[transport.Connection]bool),
		attachedServers: make(map[transport.Server]bool),
		outstanding:     make(map[transport.Connection]map[int]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers == nil {
		s.workers = newWorkerPool(1, s.logger)
	} else {
		s.workers.logger = s.logger
	}
	return s
}

// RegisterRemotable registers iface and its transitive closure of
// referenced remotable types. See registry.Register.
func (s *Space) RegisterRemotable(iface reflect.Type, opts ...registry.Option) error {
	if err := s.registry.Register(iface, opts...); err != nil {
		return err
	}
	registerParamWireTypes(s.registry)
	return nil
}

// IsRegistered reports whether iface has already been registered.
func (s *Space) IsRegistered(iface reflect.Type) bool {
	return s.registry.IsRegistered(iface)
}

// Host makes object addressable under a freshly allocated id.
func (s *Space) Host(object interface{}) int {
	return s.hosts.Host(object)
}

// HostWithID makes object addressable under an explicit id.
func (s *Space) HostWithID(id int, object interface{}) error {
	return s.hosts.HostWithID(id, object)
}

// HostConn hosts object and ensures this Space's invocation listener is
// attached to conn, so inbound calls targeting it are received.
func (s *Space) HostConn(conn transport.Connection, object interface{}) int {
	id := s.hosts.Host(object)
	s.attach(conn)
	return id
}

// HostConnWithID is HostConn with an explicit object id.
func (s *Space) HostConnWithID(conn transport.Connection, id int, object interface{}) error {
	if err := s.hosts.HostWithID(id, object); err != nil {
		return err
	}
	s.attach(conn)
	return nil
}

// HostServer hosts object and ensures every connection accepted by
// server gets this Space's invocation listener attached automatically,
// the way a passive peer that only ever accepts connections would use
// this runtime.
func (s *Space) HostServer(server transport.Server, object interface{}) int {
	id := s.hosts.Host(object)
	s.attachServer(server)
	return id
}

// HostServerWithID is HostServer with an explicit object id.
func (s *Space) HostServerWithID(server transport.Server, id int, object interface{}) error {
	if err := s.hosts.HostWithID(id, object); err != nil {
		return err
	}
	s.attachServer(server)
	return nil
}

// Attach registers this Space's invocation listener on conn without
// hosting anything, for a peer that only calls out on this connection,
// or that hosts its objects separately from establishing the link.
func (s *Space) Attach(conn transport.Connection) {
	s.attach(conn)
}

// attach registers this Space as conn's frame listener, exactly once.
func (s *Space) attach(conn transport.Connection) {
	s.attachedLock.Lock()
	defer s.attachedLock.Unlock()
	if s.attachedConns[conn] {
		return
	}
	s.attachedConns[conn] = true
	conn.RegisterListener(s)
}

func (s *Space) attachServer(server transport.Server) {
	s.attachedLock.Lock()
	defer s.attachedLock.Unlock()
	if s.attachedServers[server] {
		return
	}
	s.attachedServers[server] = true
	server.RegisterListener(transport.ServerListenerFunc(func(conn transport.Connection) {
		s.attach(conn)
	}))
}

// nextTransactionID allocates the next transaction id and remembers it
// as the last one issued. This is safe only when the caller knows no
// other goroutine is issuing an intervening call before a subsequent
// GetLastResult; concurrent callers should always track their own
// transaction id instead.
func (s *Space) nextTransactionID() int {
	id := atomic.AddInt64(&s.txnCounter, 1) - 1
	atomic.StoreInt64(&s.lastTxnID, id)
	return int(id)
}

// GetLogger exposes the runtime's logger for callers wiring up their own
// subsystems alongside it.
func (s *Space) GetLogger() *logrus.Entry { return s.logger }

// ShutdownExecutor gracefully shuts the worker pool down.
func (s *Space) ShutdownExecutor() {
	s.workers.Shutdown()
}
