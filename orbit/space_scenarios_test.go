package orbit_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/vknair/orbit-rmi/demo"
	"github.com/vknair/orbit-rmi/orbit"
	"github.com/vknair/orbit-rmi/registry"
	"github.com/vknair/orbit-rmi/transport"
)

func greeterType() reflect.Type    { return reflect.TypeOf((*demo.Greeter)(nil)).Elem() }
func boxType() reflect.Type        { return reflect.TypeOf((*demo.Box)(nil)).Elem() }
func loggerType() reflect.Type     { return reflect.TypeOf((*demo.Logger)(nil)).Elem() }
func counterType() reflect.Type    { return reflect.TypeOf((*demo.Counter)(nil)).Elem() }
func translatorType() reflect.Type { return reflect.TypeOf((*demo.Translator)(nil)).Elem() }

// dial wires two fresh Spaces together over the in-process mock network,
// with demo's interfaces registered identically on both sides, and
// returns the client-facing connection.
func dial(t *testing.T) (client, server *orbit.Space, conn transport.Connection) {
	t.Helper()
	client = orbit.New()
	server = orbit.New()
	if err := demo.RegisterAll(client); err != nil {
		t.Fatalf("client RegisterAll: %v", err)
	}
	if err := demo.RegisterAll(server); err != nil {
		t.Fatalf("server RegisterAll: %v", err)
	}

	net := transport.NewNetwork()
	net.RegisterListener(transport.ServerListenerFunc(func(accepted transport.Connection) {
		server.Attach(accepted)
	}))
	conn = net.Dial("client", "server")
	client.Attach(conn)
	return client, server, conn
}

func TestIdentityCallRoundTrips(t *testing.T) {
	client, server, conn := dial(t)
	greeter := &demo.LocalGreeter{Prefix: "hello"}
	id := server.Host(greeter)

	proxy, err := client.CreateRemote(conn, id, greeterType(), nil)
	if err != nil {
		t.Fatalf("CreateRemote: %v", err)
	}
	if got := proxy.(demo.Greeter).Greet("world"); got != "hello, world" {
		t.Errorf("Greet() = %q; want %q", got, "hello, world")
	}
}

func TestRemotableArgumentAndReturnRoundTrip(t *testing.T) {
	client, server, conn := dial(t)
	box := &demo.LocalBox{}
	boxID := server.Host(box)

	boxProxy, err := client.CreateRemote(conn, boxID, boxType(), nil)
	if err != nil {
		t.Fatalf("CreateRemote(box): %v", err)
	}

	item := &demo.LocalItem{Name: "widget"}
	client.Host(item)
	boxProxy.(demo.Box).Put(item)

	got := boxProxy.(demo.Box).Get()
	if got == nil {
		t.Fatal("Get() returned nil")
	}
	if got.Label() != "widget" {
		t.Errorf("Get().Label() = %q; want widget", got.Label())
	}
}

func TestFireAndForgetNeverBlocksOnReply(t *testing.T) {
	client, server, conn := dial(t)
	logger := &demo.LocalLogger{}
	loggerID := server.Host(logger)

	proxy, err := client.CreateRemote(conn, loggerID, loggerType(), nil)
	if err != nil {
		t.Fatalf("CreateRemote: %v", err)
	}
	proxy.(demo.Logger).Log("hello")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(logger.Lines) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if len(logger.Lines) != 1 || logger.Lines[0] != "hello" {
		t.Errorf("logger.Lines = %v; want [hello]", logger.Lines)
	}
}

func TestNonBlockingCallDefersItsResult(t *testing.T) {
	client, server, conn := dial(t)
	counter := &demo.LocalCounter{}
	counterID := server.Host(counter)

	proxy, err := client.CreateRemote(conn, counterID, counterType(), nil)
	if err != nil {
		t.Fatalf("CreateRemote: %v", err)
	}

	if got := proxy.(demo.Counter).Increment(5); got != 0 {
		t.Errorf("Increment() immediate result = %d; want 0 (deferred)", got)
	}

	result, err := client.GetLastResult()
	if err != nil {
		t.Fatalf("GetLastResult: %v", err)
	}
	if result.(int) != 5 {
		t.Errorf("GetLastResult() = %v; want 5", result)
	}
}

// silencerStub is declared here, rather than in package demo, because
// this test is the only place its Closed-policy interface is used.
type silencer interface {
	Ping() string
}

type silencerStub struct{ inv registry.Invoker }

func newSilencerStub(inv registry.Invoker) interface{} { return &silencerStub{inv: inv} }

func (s *silencerStub) Ping() string {
	res, _ := s.inv.Invoke("Ping", nil)
	str, _ := res.(string)
	return str
}

func TestClosedMethodIsElidedLocally(t *testing.T) {
	sp := orbit.New()
	iface := reflect.TypeOf((*silencer)(nil)).Elem()
	err := sp.RegisterRemotable(iface,
		registry.WithStub(newSilencerStub),
		registry.WithPolicy("Ping", registry.Policy{Closed: true}),
	)
	if err != nil {
		t.Fatalf("RegisterRemotable: %v", err)
	}

	// A connection to nobody: if Closed did not short-circuit before the
	// transport, this call would hang or error instead of returning
	// immediately with the zero value.
	net := transport.NewNetwork()
	conn := net.Dial("client", "nobody")

	proxy, err := sp.CreateRemote(conn, 0, iface, nil)
	if err != nil {
		t.Fatalf("CreateRemote: %v", err)
	}
	if got := proxy.(silencer).Ping(); got != "" {
		t.Errorf("Ping() = %q; want empty string from a closed method", got)
	}
}

// identified is declared here, rather than in package demo, because this
// test is the only place identity delegation is exercised end to end.
type identified interface {
	String() string
	Hash() int
}

type identifiedStub struct{ inv registry.Invoker }

func newIdentifiedStub(inv registry.Invoker) interface{} { return &identifiedStub{inv: inv} }

func (s *identifiedStub) String() string {
	res, _ := s.inv.Invoke("String", nil)
	str, _ := res.(string)
	return str
}

func (s *identifiedStub) Hash() int {
	res, _ := s.inv.Invoke("Hash", nil)
	h, _ := res.(int)
	return h
}

// identityDelegate answers String/Hash on a proxy's behalf without
// itself implementing identified, so CreateRemote's whole-interface
// delegation shortcut never applies: a real proxy is built, and it is
// the per-call identity check in remoteInvoker.Invoke that must catch
// String and Hash before they ever reach the transport.
type identityDelegate struct{}

func (identityDelegate) DelegatesToString() string { return "delegated-string" }

func (identityDelegate) DelegatesHash() int { return 42 }

func TestIdentityDelegationAnswersLocally(t *testing.T) {
	sp := orbit.New()
	iface := reflect.TypeOf((*identified)(nil)).Elem()
	err := sp.RegisterRemotable(iface,
		registry.WithStub(newIdentifiedStub),
		registry.WithIdentityDelegation(registry.IdentityPolicy{DelegateToString: true, DelegateHash: true}),
	)
	if err != nil {
		t.Fatalf("RegisterRemotable: %v", err)
	}

	// A connection to nobody: if delegation did not short-circuit before
	// the transport, these calls would block forever on the default
	// unbounded response timeout instead of returning immediately.
	net := transport.NewNetwork()
	conn := net.Dial("client", "nobody")

	proxy, err := sp.CreateRemote(conn, 0, iface, identityDelegate{})
	if err != nil {
		t.Fatalf("CreateRemote: %v", err)
	}
	id := proxy.(identified)
	if got := id.String(); got != "delegated-string" {
		t.Errorf("String() = %q; want %q", got, "delegated-string")
	}
	if got := id.Hash(); got != 42 {
		t.Errorf("Hash() = %d; want 42", got)
	}
}

func TestTimeoutSurfacesAsErrorWhenMethodDeclaresOne(t *testing.T) {
	client := orbit.New()
	if err := demo.RegisterAll(client); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	net := transport.NewNetwork() // nobody ever attaches a listener
	conn := net.Dial("client", "nobody")

	proxy, err := client.CreateRemote(conn, 0, translatorType(), nil)
	if err != nil {
		t.Fatalf("CreateRemote: %v", err)
	}
	_, callErr := proxy.(demo.Translator).Translate("bonjour")
	if callErr != orbit.ErrTimeout {
		t.Errorf("Translate() error = %v; want ErrTimeout", callErr)
	}
}
