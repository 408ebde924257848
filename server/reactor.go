//go:build unix

package server

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/elastic/hey-hull/graph"
	"github.com/elastic/hey-hull/server/api/io"
	"github.com/elastic/hey-hull/server/reactor"
)

// how long a reply may wait for a client that doesn't read
const writeTimeout = 5 * time.Second

type reactorConn struct {
	fd     int
	id     graph.ConnID
	framer io.Framer
}

// reactorServer owns raw non blocking sockets, everything but Shutdown runs on the reactor goroutine
type reactorServer struct {
	*Server
	reactor  *reactor.Reactor
	listenFd int
	addr     net.Addr
	clients  map[int]*reactorConn
	buf      []byte

	started      atomic.Bool
	done         chan struct{}
	closeOnce    sync.Once
	shutdownOnce sync.Once
}

func (s *Server) listenReactor() (Runner, error) {
	fd, addr, err := listenTCP(s.cfg.Addr)
	if err != nil {
		return nil, err
	}
	r, err := reactor.New()
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	rs := &reactorServer{
		Server:   s,
		reactor:  r,
		listenFd: fd,
		addr:     addr,
		clients:  make(map[int]*reactorConn),
		buf:      make([]byte, 4096),
		done:     make(chan struct{}),
	}
	r.Register(fd, reactor.HandlerFunc(rs.accept))
	s.logger.Infof("reactor listening on %s", addr)
	return rs, nil
}

func (rs *reactorServer) Addr() net.Addr {
	return rs.addr
}

// Run dispatches socket events until Shutdown, then closes every socket.
func (rs *reactorServer) Run() error {
	if !rs.started.CompareAndSwap(false, true) {
		return errors.New("reactor already running")
	}
	defer close(rs.done)
	defer rs.closeAll()
	return rs.reactor.Run()
}

func (rs *reactorServer) Shutdown() {
	rs.shutdownOnce.Do(func() {
		rs.reactor.Stop()
		if rs.started.Load() {
			<-rs.done
		} else {
			rs.closeAll()
		}
	})
}

func (rs *reactorServer) accept(fd int) {
	for {
		nfd, sa, err := unix.Accept(fd)
		switch err {
		case nil:
		case unix.EINTR, unix.ECONNABORTED:
			continue
		case unix.EAGAIN:
			return
		default:
			rs.logger.Errorf("accept: %v", err)
			return
		}
		unix.CloseOnExec(nfd)
		if err := unix.SetNonblock(nfd, true); err != nil {
			rs.logger.Errorf("accept: %v", err)
			unix.Close(nfd)
			continue
		}

		c := &reactorConn{fd: nfd, id: rs.connected(sockaddrString(sa))}
		rs.clients[nfd] = c
		rs.reactor.Register(nfd, reactor.HandlerFunc(rs.read))
		if err := writeAll(nfd, rs.greet()); err != nil {
			rs.drop(c, err)
		}
	}
}

func (rs *reactorServer) read(fd int) {
	c, ok := rs.clients[fd]
	if !ok {
		return
	}
	n, err := unix.Read(fd, rs.buf)
	switch {
	case err == unix.EAGAIN || err == unix.EINTR:
		return
	case err != nil:
		rs.drop(c, err)
		return
	case n == 0:
		rs.drop(c, nil)
		return
	}
	for _, frame := range c.framer.Feed(rs.buf[:n]) {
		if err := writeAll(fd, rs.respond(c.id, frame)); err != nil {
			rs.drop(c, err)
			return
		}
	}
}

func (rs *reactorServer) drop(c *reactorConn, err error) {
	if err != nil {
		rs.logger.Debugf("%s: %v", c.id, err)
	}
	rs.reactor.Unregister(c.fd)
	unix.Close(c.fd)
	delete(rs.clients, c.fd)
	rs.disconnected(c.id)
}

func (rs *reactorServer) closeAll() {
	rs.closeOnce.Do(func() {
		for _, c := range rs.clients {
			rs.drop(c, nil)
		}
		rs.reactor.Unregister(rs.listenFd)
		unix.Close(rs.listenFd)
		rs.reactor.Close()
	})
}

// writeAll blocks the reactor until `data` is written, or the client stops reading for writeTimeout
func writeAll(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		switch err {
		case nil:
			data = data[n:]
		case unix.EINTR:
		case unix.EAGAIN:
			pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
			ready, err := unix.Poll(pfd, int(writeTimeout/time.Millisecond))
			if err != nil && err != unix.EINTR {
				return errors.Wrap(err, "poll")
			}
			if ready == 0 && err == nil {
				return errors.New("write timeout")
			}
		default:
			return errors.Wrap(err, "write")
		}
	}
	return nil
}

// listenTCP returns a bound and listening non blocking socket
func listenTCP(addr string) (int, net.Addr, error) {
	tcp, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return -1, nil, err
	}
	family, sa := unix.AF_INET, unix.Sockaddr(&unix.SockaddrInet4{Port: tcp.Port})
	if ip4 := tcp.IP.To4(); ip4 != nil {
		copy(sa.(*unix.SockaddrInet4).Addr[:], ip4)
	} else if tcp.IP != nil {
		sa6 := &unix.SockaddrInet6{Port: tcp.Port}
		copy(sa6.Addr[:], tcp.IP.To16())
		family, sa = unix.AF_INET6, sa6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, nil, errors.Wrap(err, "socket")
	}
	unix.CloseOnExec(fd)
	bound, err := func() (unix.Sockaddr, error) {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return nil, errors.Wrap(err, "setsockopt")
		}
		if err := unix.Bind(fd, sa); err != nil {
			return nil, errors.Wrapf(err, "bind %s", addr)
		}
		if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
			return nil, errors.Wrap(err, "listen")
		}
		if err := unix.SetNonblock(fd, true); err != nil {
			return nil, errors.Wrap(err, "nonblock")
		}
		return unix.Getsockname(fd)
	}()
	if err != nil {
		unix.Close(fd)
		return -1, nil, err
	}
	return fd, tcpAddr(bound), nil
}

func tcpAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), sa.Addr[:]...)), Port: sa.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), sa.Addr[:]...)), Port: sa.Port}
	}
	return &net.TCPAddr{}
}

func sockaddrString(sa unix.Sockaddr) string {
	if sa == nil {
		return "unknown"
	}
	return tcpAddr(sa).String()
}
