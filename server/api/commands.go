package api

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	s "strings"

	"github.com/pkg/errors"
	"go.elastic.co/apm"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/elastic/hey-hull/geometry"
	"github.com/elastic/hey-hull/graph"
	"github.com/elastic/hey-hull/out"
	"github.com/elastic/hey-hull/server/api/io"
	"github.com/elastic/hey-hull/server/strcoll"
)

const (
	// DefaultRandomPoints is how many points GenerateRandom creates when not told otherwise.
	DefaultRandomPoints = 10000000
	// MaxRandomPoints bounds GenerateRandom, larger counts are refused rather than allocated.
	MaxRandomPoints = 10 * DefaultRandomPoints
)

var (
	createCmds   = []string{"CreateGraph", "NewGraph", "Newgraph"}
	addCmds      = []string{"AddPoint", "NewPoint", "Newpoint"}
	removeCmds   = []string{"RemovePoint", "Removepoint"}
	hullCmds     = []string{"CH", "ComputeCH", "ComputeHull"}
	randomCmd    = "GenerateRandom"
	statusCmd    = "Status"
	helpCmd      = "Help"
	pointCommand = "point"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrCreateFormat   = errors.New("invalid CreateGraph command format")
	ErrRandomFormat   = errors.New("invalid GenerateRandom command format")
	ErrOwnerFormat    = errors.New("invalid coordinates format while waiting for points")
)

// Processor evaluates command lines against one shared graph store.
type Processor struct {
	store        *graph.Store
	logger       *out.Logger
	algorithm    geometry.Algorithm
	randomPoints int
	rng          *rand.Rand
	tracer       *apm.Tracer
	connections  func() int
	printer      *message.Printer
}

type OptionFunc func(*Processor)

func Algorithm(a geometry.Algorithm) OptionFunc {
	return func(p *Processor) {
		p.algorithm = a
	}
}

func RandomPoints(n int) OptionFunc {
	return func(p *Processor) {
		if n > 0 && n <= MaxRandomPoints {
			p.randomPoints = n
		}
	}
}

func Seed(seed uint64) OptionFunc {
	return func(p *Processor) {
		p.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// Tracer enables one apm transaction per evaluated command.
func Tracer(t *apm.Tracer) OptionFunc {
	return func(p *Processor) {
		p.tracer = t
	}
}

// Connections tells the processor how to count live connections for the Status command.
func Connections(count func() int) OptionFunc {
	return func(p *Processor) {
		p.connections = count
	}
}

func NewProcessor(store *graph.Store, logger *out.Logger, opts ...OptionFunc) *Processor {
	p := &Processor{
		store:        store,
		logger:       logger,
		algorithm:    geometry.Monotone,
		randomPoints: DefaultRandomPoints,
		rng:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		connections:  func() int { return 0 },
		printer:      message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process evaluates `line` on behalf of `conn` holding the store lock for the whole command.
func (p *Processor) Process(conn graph.ConnID, line string) (string, error) {
	p.store.Lock()
	defer p.store.Unlock()
	return p.Eval(conn, line)
}

// Disconnect releases whatever `conn` holds in the store, ie. an unfinished builder session.
func (p *Processor) Disconnect(conn graph.ConnID) {
	p.store.Lock()
	defer p.store.Unlock()
	if p.store.Abandon(conn) {
		p.logger.Infof("%s disconnected while creating a graph, %d points kept", conn, p.store.Size())
	}
}

// Eval returns the response to `line`, or an error describing why nothing was done.
// The store lock must be held.
func (p *Processor) Eval(conn graph.ConnID, line string) (string, error) {
	cmd := s.Fields(line)
	fn := strcoll.Nth(0, cmd)
	if p.store.Session().Building() || io.LooksLikePoint(line) {
		fn = pointCommand
	}

	tx := p.startTransaction(fn, conn)
	res, err := p.eval(tx, conn, fn, line, cmd)
	p.endTransaction(tx, err)

	p.logger.Debugf("%s %q: %q %v", conn, line, res, err)
	return res, err
}

func (p *Processor) eval(tx *apm.Transaction, conn graph.ConnID, fn, line string, cmd []string) (string, error) {
	switch {
	case fn == pointCommand:
		return p.feed(conn, line)

	case strcoll.Contains(fn, createCmds):
		n, err := strconv.Atoi(strcoll.Nth(1, cmd))
		if err != nil || len(cmd) != 2 {
			return "", ErrCreateFormat
		}
		if err := p.store.Create(conn, n); err != nil {
			return "", err
		}
		p.logger.Dump("builder session", p.store.Session())
		return fmt.Sprintf("expecting %d points for new graph", n), nil

	case strcoll.Contains(fn, addCmds):
		pt, err := io.ParsePoint(argument(line, fn))
		if err != nil {
			return "", err
		}
		p.store.Add(pt)
		return "point added", nil

	case strcoll.Contains(fn, removeCmds):
		pt, err := io.ParsePoint(argument(line, fn))
		if err != nil {
			return "", err
		}
		if p.store.Remove(pt) {
			return "point removed", nil
		}
		return "point not found", nil

	case strcoll.Contains(fn, hullCmds) && len(cmd) == 1:
		return fmt.Sprintf("convex hull area: %f", p.area(tx)), nil

	case fn == randomCmd:
		n := p.randomPoints
		if len(strcoll.Rest(1, cmd)) > 1 {
			return "", ErrRandomFormat
		}
		if arg := strcoll.Nth(1, cmd); arg != "" {
			var err error
			if n, err = strconv.Atoi(arg); err != nil || n <= 0 || n > MaxRandomPoints {
				return "", ErrRandomFormat
			}
		}
		points := make([]geometry.Point, n)
		for i := range points {
			points[i] = geometry.Point{X: p.rng.Float64(), Y: p.rng.Float64()}
		}
		p.store.Replace(points)
		return p.printer.Sprintf("random points generated: %d", n), nil

	case fn == statusCmd:
		session := p.store.Session()
		return Status{
			Points:      p.store.Size(),
			Pending:     session.Pending,
			Building:    session.Building(),
			Connections: p.connections(),
			Algorithm:   string(p.algorithm),
		}.String(), nil

	case fn == helpCmd:
		return "commands: CreateGraph <n> | <x>,<y> | AddPoint <x>,<y> | RemovePoint <x>,<y> | CH | " +
			"GenerateRandom [n] | Status | Help", nil
	}
	return "", ErrUnknownCommand
}

// feed handles a bare coordinate line, which is only meaningful during a builder session
func (p *Processor) feed(conn graph.ConnID, line string) (string, error) {
	session := p.store.Session()
	if session.Building() && session.Owner != conn {
		return "", graph.ErrAnotherClient
	}
	pt, err := io.ParsePoint(line)
	if err != nil {
		if session.Building() {
			return "", ErrOwnerFormat
		}
		return "", ErrUnknownCommand
	}
	left, err := p.store.Feed(conn, pt)
	if err != nil {
		return "", err
	}
	if left == 0 {
		p.logger.Infof("%s created a graph of %d points", conn, p.store.Size())
		return "graph creation complete", nil
	}
	return "point added", nil
}

// argument is whatever follows the command keyword, inner spaces included
func argument(line, fn string) string {
	return s.TrimSpace(s.TrimPrefix(s.TrimSpace(line), fn))
}

// area holds the lock for the whole computation, large graphs block every other connection meanwhile
func (p *Processor) area(tx *apm.Transaction) float64 {
	if tx != nil {
		span := tx.StartSpan("hull", "geometry", nil)
		defer span.End()
	}
	return geometry.Area(p.algorithm.Hull(p.store.View()))
}

func (p *Processor) startTransaction(fn string, conn graph.ConnID) *apm.Transaction {
	if p.tracer == nil {
		return nil
	}
	if fn == "" || !p.known(fn) {
		fn = "unknown"
	}
	tx := p.tracer.StartTransaction(fn, "command")
	tx.Context.SetLabel("connection", string(conn))
	return tx
}

func (p *Processor) endTransaction(tx *apm.Transaction, err error) {
	if tx == nil {
		return
	}
	tx.Result = "ok"
	if err != nil {
		tx.Result = "error"
	}
	tx.End()
}

func (p *Processor) known(fn string) bool {
	return fn == pointCommand || fn == randomCmd || fn == statusCmd || fn == helpCmd ||
		strcoll.Contains(fn, createCmds) || strcoll.Contains(fn, addCmds) ||
		strcoll.Contains(fn, removeCmds) || strcoll.Contains(fn, hullCmds)
}
