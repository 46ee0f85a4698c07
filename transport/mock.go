package transport

import (
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/vknair/orbit-rmi/utils"
)

// DelayGenerator produces an artificial one-way latency between two named
// endpoints. Tests use it to exercise timeouts deterministically; the
// zero value network has no delay.
type DelayGenerator func(from, to NodeID) time.Duration

// Network is an in-process, channel-backed transport for tests and local
// demos. It plays the role of both the wire and the listening server: any
// peer can Dial another, and the network fires the server-side listener
// so the callee can attach its invocation handler before traffic starts
// flowing, exactly as a real accept loop would.
type Network struct {
	lock     deadlock.Mutex
	listener ServerListener
	delay    DelayGenerator
	closed   bool
}

// NewNetwork returns an empty mock network with no artificial latency.
func NewNetwork() *Network {
	return &Network{
		delay: func(from, to NodeID) time.Duration { return 0 },
	}
}

// UniformDelay returns a DelayGenerator that picks a one-way latency
// uniformly at random from [min, max], both ends included, for every message, regardless of
// endpoints. Useful for exercising timeout paths deterministically
// enough while still varying delivery order between runs.
func UniformDelay(min, max time.Duration) DelayGenerator {
	return func(from, to NodeID) time.Duration {
		return utils.RandomTime(min, max)
	}
}

// SetDelayGenerator overrides the per-message latency model.
func (n *Network) SetDelayGenerator(d DelayGenerator) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.delay = d
}

// RegisterListener implements Server: the callback fires once for every
// connection accepted on the "server" side of a Dial.
func (n *Network) RegisterListener(l ServerListener) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.listener = l
}

// Close marks the network as shut down: a later Dial no longer fires the
// server listener, so the connection it returns reaches nobody.
// Existing connections keep working.
func (n *Network) Close() error {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.closed = true
	return nil
}

type wireMsg struct {
	frame      Frame
	unreliable bool
}

// Dial establishes a connection edge between two peers. It returns the
// Connection the dialing side (from) should use; the accepting side
// (to)'s Connection is handed to the network's registered ServerListener,
// matching how a real listener learns about a freshly accepted socket.
func (n *Network) Dial(from, to NodeID) Connection {
	n.lock.Lock()
	delay := n.delay
	listener := n.listener
	if n.closed {
		listener = nil
	}
	n.lock.Unlock()

	a2b := make(chan wireMsg, 64)
	b2a := make(chan wireMsg, 64)

	connFrom := &memConn{self: from, remote: to, send: a2b, recv: b2a, delay: delay, closed: make(chan struct{})}
	connTo := &memConn{self: to, remote: from, send: b2a, recv: a2b, delay: delay, closed: make(chan struct{})}

	go connFrom.pump()
	go connTo.pump()

	if listener != nil {
		listener.Connected(connTo)
	}
	return connFrom
}

// memConn is a Connection backed by a pair of directed Go channels.
type memConn struct {
	self, remote NodeID
	send         chan wireMsg
	recv         chan wireMsg
	delay        DelayGenerator

	lock     deadlock.Mutex
	listener Listener
	sendLock deadlock.Mutex
	closed   chan struct{}
	closeErr error
}

func (c *memConn) RemoteID() NodeID { return c.remote }

func (c *memConn) RegisterListener(l Listener) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.listener = l
}

func (c *memConn) SendReliable(frame Frame) error {
	return c.enqueue(wireMsg{frame: frame})
}

func (c *memConn) SendUnreliable(frame Frame) error {
	return c.enqueue(wireMsg{frame: frame, unreliable: true})
}

func (c *memConn) enqueue(msg wireMsg) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	d := c.oneWayDelay()
	if msg.unreliable {
		// Unordered delivery: hop to its own goroutine so concurrent
		// unreliable sends may complete out of order relative to each
		// other and relative to reliable traffic.
		go func() {
			if d > 0 {
				time.Sleep(d)
			}
			select {
			case c.send <- msg:
			case <-c.closed:
			}
		}()
		return nil
	}
	// Reliable delivery: serialize with a lock so submission order on
	// this connection is preserved even under concurrent callers.
	c.sendLock.Lock()
	defer c.sendLock.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

func (c *memConn) oneWayDelay() time.Duration {
	if c.delay == nil {
		return 0
	}
	d := c.delay(c.self, c.remote)
	if d <= 0 {
		return 0
	}
	// small jitter so batches of unreliable sends don't lock-step
	return d + utils.RandomTime(0, d/4+1)
}

func (c *memConn) pump() {
	for {
		select {
		case msg, ok := <-c.recv:
			if !ok {
				return
			}
			c.lock.Lock()
			l := c.listener
			c.lock.Unlock()
			if l != nil {
				l.Receive(c, msg.frame)
			}
		case <-c.closed:
			return
		}
	}
}

func (c *memConn) Close() error {
	c.lock.Lock()
	already := false
	select {
	case <-c.closed:
		already = true
	default:
		close(c.closed)
	}
	l := c.listener
	c.lock.Unlock()
	if !already {
		if d, ok := l.(Disconnectable); ok {
			d.Disconnected(c)
		}
	}
	return nil
}
