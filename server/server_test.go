package server

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/hey-hull/graph"
	"github.com/elastic/hey-hull/out"
	"github.com/elastic/hey-hull/server/api/io"
	"github.com/elastic/hey-hull/server/tests"
)

var modes = []Mode{Reactor, Proactor}

func start(t *testing.T, cfg Config) (*Server, Runner, *graph.Store) {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	store := graph.NewStore()
	srv := New(cfg, store, out.Discard())
	runner, err := srv.Listen()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- runner.Run() }()
	t.Cleanup(func() {
		runner.Shutdown()
		assert.NoError(t, <-done)
	})
	return srv, runner, store
}

func eachMode(t *testing.T, test func(t *testing.T, srv *Server, runner Runner, store *graph.Store)) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			srv, runner, store := start(t, Config{Mode: mode})
			test(t, srv, runner, store)
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("reactor")
	assert.NoError(t, err)
	assert.Equal(t, Reactor, m)
	m, err = ParseMode("proactor")
	assert.NoError(t, err)
	assert.Equal(t, Proactor, m)
	_, err = ParseMode("threads")
	assert.Equal(t, ErrUnknownMode, err)

	_, err = New(Config{Mode: "threads"}, graph.NewStore(), out.Discard()).Listen()
	assert.Equal(t, ErrUnknownMode, err)
}

func TestCreateGraphOverTCP(t *testing.T) {
	eachMode(t, func(t *testing.T, _ *Server, runner Runner, store *graph.Store) {
		c := tests.Dial(t, runner.Addr().String())
		defer c.Close()
		assert.Equal(t, greeting, c.Greeting)

		for _, step := range [][2]string{
			{"CreateGraph 3", "expecting 3 points for new graph"},
			{"0,0", "point added"},
			{"1,0", "point added"},
			{"0,1", "graph creation complete"},
			{"ComputeHull", "convex hull area: 0.500000"},
			{"Bogus", "unknown command"},
		} {
			assert.Equal(t, step[1], c.Send(step[0]), step[0])
		}
		assert.Equal(t, 3, store.Size())
	})
}

func TestAnotherClientIsCreatingOverTCP(t *testing.T) {
	eachMode(t, func(t *testing.T, _ *Server, runner Runner, store *graph.Store) {
		a := tests.Dial(t, runner.Addr().String())
		defer a.Close()
		b := tests.Dial(t, runner.Addr().String())
		defer b.Close()

		assert.Equal(t, "expecting 2 points for new graph", a.Send("CreateGraph 2"))
		assert.Equal(t, "another client is creating a graph", b.Send("AddPoint 5,5"))
		assert.Equal(t, "another client is creating a graph", b.Send("1,1"))
		assert.Equal(t, "point added", a.Send("1,1"))
		assert.Equal(t, "graph creation complete", a.Send("2,2"))
		assert.Equal(t, "point added", b.Send("AddPoint 5,5"))
		assert.Equal(t, 3, store.Size())
	})
}

func TestOwnerDisconnectAbandonsSession(t *testing.T) {
	eachMode(t, func(t *testing.T, _ *Server, runner Runner, store *graph.Store) {
		a := tests.Dial(t, runner.Addr().String())
		b := tests.Dial(t, runner.Addr().String())
		defer b.Close()

		assert.Equal(t, "expecting 4 points for new graph", a.Send("CreateGraph 4"))
		assert.Equal(t, "point added", a.Send("3,3"))
		a.Close()

		assert.Eventually(t, func() bool {
			return strings.Contains(b.Send("Status"), `"building":false`)
		}, 5*time.Second, 10*time.Millisecond)
		assert.Equal(t, "point added", b.Send("AddPoint 4,4"))
		assert.Equal(t, 2, store.Size())
	})
}

func TestFramingOverTCP(t *testing.T) {
	eachMode(t, func(t *testing.T, _ *Server, runner Runner, store *graph.Store) {
		c := tests.Dial(t, runner.Addr().String())
		defer c.Close()

		// a command split across writes, and several commands in one write
		c.Write("AddPoint 0,")
		c.Write("0\r\nAddPoint 2,0\n\nAddPoint 0,2\nCH\n")
		assert.Equal(t, "point added", c.Read())
		assert.Equal(t, "point added", c.Read())
		assert.Equal(t, "point added", c.Read())
		assert.Equal(t, "convex hull area: 2.000000", c.Read())

		c.Write(strings.Repeat("x", io.MaxLineSize+10) + "\n")
		assert.Equal(t, "line too long", c.Read())
		assert.Equal(t, "point removed", c.Send("RemovePoint 2,0"))
		assert.Equal(t, 2, store.Size())
	})
}

func TestStatusCountsConnections(t *testing.T) {
	eachMode(t, func(t *testing.T, srv *Server, runner Runner, _ *graph.Store) {
		a := tests.Dial(t, runner.Addr().String())
		defer a.Close()
		b := tests.Dial(t, runner.Addr().String())

		assert.Equal(t, 2, srv.Connections())
		assert.Contains(t, a.Send("Status"), `"connections":2`)
		b.Close()
		assert.Eventually(t, func() bool { return srv.Connections() == 1 }, 5*time.Second, 10*time.Millisecond)
	})
}

// K clients adding one point each grow the graph by exactly K
func TestConcurrentClients(t *testing.T) {
	eachMode(t, func(t *testing.T, _ *Server, runner Runner, store *graph.Store) {
		const k = 32
		var wg sync.WaitGroup
		for i := 0; i < k; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				c := tests.Dial(t, runner.Addr().String())
				defer c.Close()
				assert.Equal(t, "point added", c.Send(fmt.Sprintf("AddPoint %d,%d", i, i*i)))
			}(i)
		}
		wg.Wait()
		assert.Equal(t, k, store.Size())
	})
}

func TestShutdownClosesClients(t *testing.T) {
	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			srv := New(Config{Mode: mode, Addr: "127.0.0.1:0"}, graph.NewStore(), out.Discard())
			runner, err := srv.Listen()
			require.NoError(t, err)
			done := make(chan error, 1)
			go func() { done <- runner.Run() }()

			c := tests.Dial(t, runner.Addr().String())
			defer c.Close()
			assert.Equal(t, "point added", c.Send("AddPoint 1,1"))

			runner.Shutdown()
			assert.NoError(t, <-done)
			assert.True(t, c.Hungup())
			assert.Equal(t, 0, srv.Connections())
			runner.Shutdown()
		})
	}
}

func TestShutdownBeforeRun(t *testing.T) {
	for _, mode := range modes {
		srv := New(Config{Mode: mode, Addr: "127.0.0.1:0"}, graph.NewStore(), out.Discard())
		runner, err := srv.Listen()
		require.NoError(t, err)
		runner.Shutdown()
		assert.NoError(t, runner.Run(), mode)
	}
}

func TestColoredReplies(t *testing.T) {
	srv := New(Config{Color: true}, graph.NewStore(), out.Discard())
	id := graph.NewConnID()

	res := string(srv.respond(id, io.Frame{Line: "Bogus"}))
	assert.Equal(t, io.Red+"unknown command"+io.Grey+"\n"+io.Cyan+">> "+io.Grey, res)
	res = string(srv.respond(id, io.Frame{Err: io.ErrLineTooLong}))
	assert.Equal(t, "line too long\n>> ", tests.WithoutColors(res))

	srv = New(Config{}, graph.NewStore(), out.Discard())
	assert.Equal(t, "point added\n>> ", string(srv.respond(id, io.Frame{Line: "AddPoint 1,1"})))
	assert.Equal(t, greeting+"\n>> ", string(srv.greet()))
	assert.Equal(t, "invalid coordinates format\n>> ", string(srv.respond(id, io.Frame{Line: "AddPoint x,1"})))
	assert.Equal(t, "invalid coordinates format\n>> ", string(srv.respond(id, io.Frame{Line: "AddPoint 1 2,3"})))
}
