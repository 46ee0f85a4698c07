package orbit

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// drainTimeout bounds how long Shutdown waits for in-flight and queued
// tasks to finish before giving up and logging how many were left.
const drainTimeout = 5 * time.Second

// workerPool runs dispatched invocations off the transport's receive
// goroutine. The default single worker serializes every target method
// call, which is what gives execution frames their in-submission-order
// completion guarantee; a caller who configures more workers trades that
// guarantee for throughput.
type workerPool struct {
	tasks     chan func()
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
	logger    *logrus.Entry
}

func newWorkerPool(workers int, logger *logrus.Entry) *workerPool {
	if workers <= 0 {
		workers = 1
	}
	p := &workerPool{
		tasks:  make(chan func(), 1024),
		closed: make(chan struct{}),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.loop()
	}
	return p
}

func (p *workerPool) loop() {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.tasks:
			task()
		case <-p.closed:
			p.drain()
			return
		}
	}
}

// drain runs whatever was already queued at the moment shutdown was
// signaled, without blocking for anything submitted afterward.
func (p *workerPool) drain() {
	for {
		select {
		case task := <-p.tasks:
			task()
		default:
			return
		}
	}
}

// Submit hands a task to the pool. It is a no-op once the pool has begun
// shutting down. p.tasks is never closed, so a connection's receive
// goroutine racing a concurrent Shutdown can never panic sending on it;
// closed is the only shutdown signal.
func (p *workerPool) Submit(task func()) {
	select {
	case <-p.closed:
		return
	default:
	}
	select {
	case p.tasks <- task:
	case <-p.closed:
	}
}

// Shutdown stops accepting new work and waits up to drainTimeout for
// queued and in-flight work to finish. Past that, it discards every task
// still queued and logs how many it discarded; a task already running is
// not interrupted.
func (p *workerPool) Shutdown() {
	p.closeOnce.Do(func() {
		close(p.closed)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		pending := 0
		for discarding := true; discarding; {
			select {
			case <-p.tasks:
				pending++
			default:
				discarding = false
			}
		}
		if p.logger != nil {
			p.logger.Warnf("worker pool did not drain within %v, %d task(s) still pending", drainTimeout, pending)
		}
	}
}
