package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"golang.org/x/sync/errgroup"

	"github.com/elastic/hey-hull/geometry"
	"github.com/elastic/hey-hull/graph"
	"github.com/elastic/hey-hull/out"
	"github.com/elastic/hey-hull/server"
	"github.com/elastic/hey-hull/server/api"
	"github.com/elastic/hey-hull/tracer"
)

var (
	addr         = flag.String("addr", ":9034", "address to listen on")
	mode         = flag.String("mode", string(server.Proactor), "concurrency model: reactor or proactor")
	hull         = flag.String("hull", string(geometry.Monotone), "convex hull algorithm: monotone or polar")
	maxConns     = flag.Int("max-conns", 0, "max connections served at once in proactor mode, 0 means no limit")
	color        = flag.Bool("color", false, "colored replies")
	debug        = flag.Bool("debug", false, "log every command and its reply")
	randomPoints = flag.Int("random-points", api.DefaultRandomPoints, "points created by GenerateRandom without arguments")
	cpuProfile   = flag.String("cpuprofile", "", "write a cpu profile into this directory")
	apmURL       = flag.String("apm-url", "", "apm-server to send one transaction per command to, disabled when empty")
	apmSecret    = flag.String("apm-secret", "", "apm-server secret token")
	apmService   = flag.String("apm-service", "hey-hull", "service name reported to apm-server")
)

type options struct {
	server       server.Config
	algorithm    geometry.Algorithm
	randomPoints int
	debug        bool
	cpuProfile   string
	tracer       tracer.Config
}

func parseFlags() (options, error) {
	m, err := server.ParseMode(*mode)
	if err != nil {
		return options{}, err
	}
	algorithm, err := geometry.ParseAlgorithm(*hull)
	if err != nil {
		return options{}, err
	}
	if *randomPoints <= 0 || *randomPoints > api.MaxRandomPoints {
		return options{}, errors.Errorf("random-points must be between 1 and %d", api.MaxRandomPoints)
	}
	if *maxConns < 0 {
		return options{}, errors.New("max-conns can't be negative")
	}
	return options{
		server: server.Config{
			Addr:     *addr,
			Mode:     m,
			MaxConns: *maxConns,
			Color:    *color,
		},
		algorithm:    algorithm,
		randomPoints: *randomPoints,
		debug:        *debug,
		cpuProfile:   *cpuProfile,
		tracer: tracer.Config{
			ServerURL:    *apmURL,
			SecretToken:  *apmSecret,
			ServiceName:  *apmService,
			FlushTimeout: 5 * time.Second,
		},
	}, nil
}

func main() {
	flag.Parse()
	logger := out.NewLogger(os.Stderr, *debug)

	opts, err := parseFlags()
	if err != nil {
		logger.Errorf("%v", err)
		flag.Usage()
		os.Exit(2)
	}
	if err := run(logger, opts); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// run serves until interrupted, or until the server fails
func run(logger *out.Logger, opts options) error {
	if opts.cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(opts.cpuProfile), profile.NoShutdownHook).Stop()
	}

	procOpts := []api.OptionFunc{api.Algorithm(opts.algorithm), api.RandomPoints(opts.randomPoints)}
	if opts.tracer.ServerURL != "" {
		tr, err := tracer.New(logger, opts.tracer)
		if err != nil {
			return err
		}
		defer tr.FlushAll()
		procOpts = append(procOpts, api.Tracer(tr.Tracer))
	}

	srv := server.New(opts.server, graph.NewStore(), logger, procOpts...)
	runner, err := srv.Listen()
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	logger.Infof("serving in %s mode, computing hulls with the %s algorithm", opts.server.Mode, opts.algorithm)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return errors.Wrap(runner.Run(), string(opts.server.Mode)+" server")
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case s := <-sig:
			logger.Infof("caught %v, closing all connections", s)
		case <-ctx.Done():
		}
		runner.Shutdown()
		return nil
	})
	err = g.Wait()
	if err == nil {
		logger.Infof("stopped cleanly")
	}
	return err
}
