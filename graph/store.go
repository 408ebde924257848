package graph

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/elastic/hey-hull/geometry"
)

var (
	ErrInvalidCount  = errors.New("graph must have at least one point")
	ErrAnotherClient = errors.New("another client is creating a graph")
	ErrNotBuilding   = errors.New("no graph is being created")
)

// ConnID identifies a client connection for the lifetime of that connection.
// Descriptor numbers get reused by the kernel, so they can't be used to tell who owns a builder session.
type ConnID string

func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// Session is the builder session state, the zero value means idle.
type Session struct {
	Pending int
	Owner   ConnID
}

func (s Session) Building() bool {
	return s.Pending > 0
}

// Store is the single shared graph: a point sequence plus its builder session.
// Both are one unit and are guarded by the store monitor: every method except Lock and Unlock must be called
// with the lock held. The lock is left to callers so that a whole command (parse, mutate, query) runs as one
// critical section.
type Store struct {
	mu      sync.Mutex
	points  []geometry.Point
	session Session
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Lock() {
	s.mu.Lock()
}

func (s *Store) Unlock() {
	s.mu.Unlock()
}

// Create clears the graph and hands the builder session to `owner`, who must then stream `n` points.
func (s *Store) Create(owner ConnID, n int) error {
	if n <= 0 {
		return ErrInvalidCount
	}
	s.points = make([]geometry.Point, 0, n)
	s.session = Session{Pending: n, Owner: owner}
	return nil
}

// Feed appends a point streamed during a builder session and reports how many are still expected.
func (s *Store) Feed(conn ConnID, p geometry.Point) (int, error) {
	if !s.session.Building() {
		return 0, ErrNotBuilding
	}
	if s.session.Owner != conn {
		return s.session.Pending, ErrAnotherClient
	}
	s.points = append(s.points, p)
	s.session.Pending--
	if s.session.Pending == 0 {
		s.session = Session{}
	}
	return s.session.Pending, nil
}

// Abandon drops the builder session if `conn` owns it, points streamed so far are kept.
func (s *Store) Abandon(conn ConnID) bool {
	if !s.session.Building() || s.session.Owner != conn {
		return false
	}
	s.session = Session{}
	return true
}

func (s *Store) Add(p geometry.Point) {
	s.points = append(s.points, p)
}

// Remove deletes one point equal to `p`, if any.
// Order is not preserved: the last point takes the place of the removed one.
func (s *Store) Remove(p geometry.Point) bool {
	for i, q := range s.points {
		if q == p {
			last := len(s.points) - 1
			s.points[i] = s.points[last]
			s.points = s.points[:last]
			return true
		}
	}
	return false
}

// Replace swaps the whole point set, ending any builder session.
func (s *Store) Replace(points []geometry.Point) {
	s.points = points
	s.session = Session{}
}

// Points returns a copy of the current point sequence.
func (s *Store) Points() []geometry.Point {
	return append(make([]geometry.Point, 0, len(s.points)), s.points...)
}

// View exposes the point sequence without copying, it must not be retained after the lock is released.
func (s *Store) View() []geometry.Point {
	return s.points
}

func (s *Store) Size() int {
	return len(s.points)
}

func (s *Store) Session() Session {
	return s.session
}
