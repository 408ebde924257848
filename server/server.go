package server

import (
	"context"
	goio "io"
	"net"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/elastic/hey-hull/graph"
	"github.com/elastic/hey-hull/out"
	"github.com/elastic/hey-hull/server/api"
	"github.com/elastic/hey-hull/server/api/io"
	"github.com/elastic/hey-hull/server/proactor"
)

type Mode string

const (
	Reactor  Mode = "reactor"
	Proactor Mode = "proactor"
)

var ErrUnknownMode = errors.New("unknown server mode, expected reactor or proactor")

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Reactor, Proactor:
		return m, nil
	}
	return "", ErrUnknownMode
}

const greeting = "type 'Help' for help"

type Config struct {
	Addr string
	Mode Mode
	// max connections served at once in proactor mode, 0 means unlimited
	MaxConns int
	Color    bool
}

// Runner is a listening server, Run blocks until Shutdown is called or a fatal error occurs.
// Shutdown waits until every connection is closed and may be called from any goroutine, and more than once.
type Runner interface {
	Run() error
	Shutdown()
	Addr() net.Addr
}

type Server struct {
	cfg    Config
	store  *graph.Store
	proc   *api.Processor
	logger *out.Logger
	conns  atomic.Int64
}

// New returns a server evaluating commands against `store`, `opts` are passed to the command processor.
func New(cfg Config, store *graph.Store, logger *out.Logger, opts ...api.OptionFunc) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
	opts = append(opts, api.Connections(s.Connections))
	s.proc = api.NewProcessor(store, logger, opts...)
	return s
}

// Listen binds the configured address, the returned Runner isn't accepting connections until Run is called.
func (s *Server) Listen() (Runner, error) {
	switch s.cfg.Mode {
	case Reactor:
		return s.listenReactor()
	case Proactor, "":
		return s.listenProactor()
	}
	return nil, ErrUnknownMode
}

// Connections returns how many clients are connected.
func (s *Server) Connections() int {
	return int(s.conns.Load())
}

func (s *Server) listenProactor() (Runner, error) {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, err
	}
	s.logger.Infof("proactor listening on %s", l.Addr())
	p := proactor.New(l, proactor.ConnHandlerFunc(s.serveConn), s.logger, proactor.MaxConns(s.cfg.MaxConns))
	return proactorRunner{p}, nil
}

type proactorRunner struct {
	*proactor.Proactor
}

func (p proactorRunner) Run() error {
	return p.Serve()
}

// serveConn runs on its own goroutine until the client hangs up or the proactor shuts down
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	id := s.connected(conn.RemoteAddr().String())
	defer s.disconnected(id)

	if _, err := conn.Write(s.greet()); err != nil {
		return
	}
	var framer io.Framer
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		for _, frame := range framer.Feed(buf[:n]) {
			if _, werr := conn.Write(s.respond(id, frame)); werr != nil {
				s.logger.Debugf("%s: %v", id, werr)
				return
			}
		}
		if err != nil {
			if err != goio.EOF && ctx.Err() == nil {
				s.logger.Warningf("%s: %v", id, err)
			}
			return
		}
	}
}

func (s *Server) connected(peer string) graph.ConnID {
	id := graph.NewConnID()
	n := s.conns.Add(1)
	s.logger.Infof("%s connected from %s, %d connections", id, peer, n)
	return id
}

func (s *Server) disconnected(id graph.ConnID) {
	s.proc.Disconnect(id)
	n := s.conns.Add(-1)
	s.logger.Infof("%s disconnected, %d connections", id, n)
}

func (s *Server) greet() []byte {
	bw := io.NewBufferWriter()
	w := s.writer(bw)
	io.ReplyNL(w, io.Grey+greeting)
	io.Prompt(w)
	return bw.Bytes()
}

// respond evaluates one frame and returns the reply line followed by a prompt
func (s *Server) respond(id graph.ConnID, frame io.Frame) []byte {
	bw := io.NewBufferWriter()
	w := s.writer(bw)
	if frame.Err != nil {
		io.ReplyEitherNL(w, frame.Err)
	} else {
		res, err := s.proc.Process(id, frame.Line)
		io.ReplyEitherNL(w, err, res)
	}
	io.Prompt(w)
	return bw.Bytes()
}

func (s *Server) writer(w goio.Writer) goio.Writer {
	if s.cfg.Color {
		return w
	}
	return io.Plain(w)
}
