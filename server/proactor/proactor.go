// Package proactor serves every accepted connection on its own goroutine.
// Workers block on their connection; whatever state they share must be guarded by the handler.
package proactor

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/elastic/hey-hull/out"
)

// ConnHandler serves one connection until the peer goes away or ctx is done.
// The proactor closes the connection once Serve returns.
type ConnHandler interface {
	Serve(ctx context.Context, conn net.Conn)
}

type ConnHandlerFunc func(ctx context.Context, conn net.Conn)

func (f ConnHandlerFunc) Serve(ctx context.Context, conn net.Conn) {
	f(ctx, conn)
}

type OptionFunc func(*Proactor)

// MaxConns caps how many connections are served at once, further clients wait in the listen backlog.
func MaxConns(n int) OptionFunc {
	return func(p *Proactor) {
		if n > 0 {
			p.listener = netutil.LimitListener(p.listener, n)
		}
	}
}

type Proactor struct {
	listener net.Listener
	handler  ConnHandler
	logger   *out.Logger

	// workers, they get ctx cancelled and their connection closed on shutdown
	workers *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc

	mu         sync.Mutex // guards everything below
	conns      map[net.Conn]struct{}
	serving    bool
	closing    bool
	acceptDone chan struct{}

	shutdownOnce sync.Once
}

func New(listener net.Listener, handler ConnHandler, logger *out.Logger, opts ...OptionFunc) *Proactor {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Proactor{
		listener:   listener,
		handler:    handler,
		logger:     logger,
		workers:    &errgroup.Group{},
		ctx:        ctx,
		cancel:     cancel,
		conns:      make(map[net.Conn]struct{}),
		acceptDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Proactor) Addr() net.Addr {
	return p.listener.Addr()
}

// Serve accepts connections until Shutdown, starting one worker per connection.
// It returns nil after Shutdown, or an error if Serve was already called.
func (p *Proactor) Serve() error {
	p.mu.Lock()
	if p.serving {
		p.mu.Unlock()
		return errors.New("proactor already serving")
	}
	p.serving = true
	if p.closing {
		p.mu.Unlock()
		close(p.acceptDone)
		return nil
	}
	p.mu.Unlock()
	defer close(p.acceptDone)

	var backoff time.Duration
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			if p.isClosing() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// eg. too many open files, the listener itself is fine
			backoff = nextBackoff(backoff)
			p.logger.Errorf("accept: %v, retrying in %v", err, backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if !p.track(conn) {
			conn.Close()
			return nil
		}
		p.workers.Go(func() error {
			defer p.untrack(conn)
			p.handler.Serve(p.ctx, conn)
			return nil
		})
	}
}

// Shutdown stops accepting, then cancels workers and closes their connections, and waits for all of them.
func (p *Proactor) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closing = true
		serving := p.serving
		p.mu.Unlock()

		if err := p.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			p.logger.Errorf("closing listener: %v", err)
		}
		// no worker can be started past this point
		if serving {
			<-p.acceptDone
		}

		p.cancel()
		p.mu.Lock()
		for conn := range p.conns {
			// unblocks reads
			conn.Close()
		}
		p.mu.Unlock()

		p.workers.Wait()
	})
}

// Len returns how many connections are being served.
func (p *Proactor) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *Proactor) isClosing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closing
}

func (p *Proactor) track(conn net.Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing {
		return false
	}
	p.conns[conn] = struct{}{}
	return true
}

func (p *Proactor) untrack(conn net.Conn) {
	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()
	conn.Close()
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		return time.Second
	}
	return d
}
