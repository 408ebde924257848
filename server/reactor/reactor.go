//go:build unix

// Package reactor is a single-threaded readiness loop: descriptors are registered with a handler, and whenever
// any of them becomes readable its handler runs on the loop's goroutine. Handlers must not block, the only
// suspension point is the wait for readiness.
package reactor

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// readable is what makes a descriptor worth dispatching: data, end of stream, or a pending error.
const readable = unix.POLLIN | unix.POLLHUP | unix.POLLERR

type Handler interface {
	Handle(fd int)
}

type HandlerFunc func(fd int)

func (f HandlerFunc) Handle(fd int) {
	f(fd)
}

type Reactor struct {
	mu       sync.Mutex // guards handlers, order and wake
	handlers map[int]Handler
	order    []int

	stopped atomic.Bool
	// self-pipe, Stop writes to wake[1] to end a wait
	wake [2]int
	poll func([]unix.PollFd, int) (int, error)
}

func New() (*Reactor, error) {
	r := &Reactor{
		handlers: make(map[int]Handler),
		poll:     unix.Poll,
	}
	if err := unix.Pipe(r.wake[:]); err != nil {
		return nil, errors.Wrap(err, "wakeup pipe")
	}
	for _, fd := range r.wake {
		if err := unix.SetNonblock(fd, true); err != nil {
			r.Close()
			return nil, errors.Wrap(err, "wakeup pipe")
		}
	}
	return r, nil
}

// Register starts monitoring `fd`, replacing its handler if it was registered already.
func (r *Reactor) Register(fd int, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[fd]; !ok {
		r.order = append(r.order, fd)
	}
	r.handlers[fd] = h
}

// Unregister stops monitoring `fd`, it doesn't close it.
func (r *Reactor) Unregister(fd int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[fd]; !ok {
		return
	}
	delete(r.handlers, fd)
	for i, x := range r.order {
		if x == fd {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Reactor) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Run waits for readable descriptors and calls their handlers, in registration order, until Stop is called.
// An interrupted wait is retried, any other wait failure ends the loop and is returned.
func (r *Reactor) Run() error {
	for !r.stopped.Load() {
		fds := r.pollFds()
		if _, err := r.poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return errors.Wrap(err, "poll")
		}

		for _, pfd := range fds[1:] {
			fd := int(pfd.Fd)
			if pfd.Revents&unix.POLLNVAL != 0 {
				// closed without being unregistered
				r.Unregister(fd)
				continue
			}
			if pfd.Revents&readable == 0 {
				continue
			}
			// an earlier handler in this pass might have unregistered it
			if h, ok := r.handler(fd); ok {
				h.Handle(fd)
			}
		}
		if fds[0].Revents&readable != 0 {
			r.drain()
		}
	}
	return nil
}

// Stop makes Run return once the current wait and dispatch pass are done.
// Safe to call from any goroutine, and before Run.
func (r *Reactor) Stop() {
	r.stopped.Store(true)
	r.mu.Lock()
	defer r.mu.Unlock()
	// once closed, the descriptor number may belong to someone else
	if r.wake[1] >= 0 {
		unix.Write(r.wake[1], []byte{0})
	}
}

// Close releases the wakeup pipe, registered descriptors are left to their owners.
// Stop is a no-op on the wakeup pipe afterwards, and closing twice is harmless.
func (r *Reactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	for i, fd := range r.wake {
		if fd < 0 {
			continue
		}
		if cerr := unix.Close(fd); cerr != nil && err == nil {
			err = cerr
		}
		r.wake[i] = -1
	}
	return err
}

func (r *Reactor) pollFds() []unix.PollFd {
	r.mu.Lock()
	defer r.mu.Unlock()
	fds := make([]unix.PollFd, 0, len(r.order)+1)
	fds = append(fds, unix.PollFd{Fd: int32(r.wake[0]), Events: unix.POLLIN})
	for _, fd := range r.order {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}
	return fds
}

func (r *Reactor) handler(fd int) (Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[fd]
	return h, ok
}

func (r *Reactor) drain() {
	buf := make([]byte, 64)
	for {
		if n, err := unix.Read(r.wake[0], buf); n <= 0 || err != nil {
			return
		}
	}
}
