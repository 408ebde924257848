package tracer

import (
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.elastic.co/apm"
	apmtransport "go.elastic.co/apm/transport"
)

type Config struct {
	// events are dropped when empty
	ServerURL    string
	SecretToken  string
	ServiceName  string
	FlushTimeout time.Duration
}

// Tracer records one transaction per command evaluated by the server.
type Tracer struct {
	*apm.Tracer
	logger  apm.Logger
	timeout time.Duration
}

func New(logger apm.Logger, cfg Config) (*Tracer, error) {
	var transport apmtransport.Transport = apmtransport.Discard
	if cfg.ServerURL != "" {
		u, err := url.Parse(cfg.ServerURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid apm-server url")
		}
		http, err := apmtransport.NewHTTPTransport()
		if err != nil {
			return nil, errors.Wrap(err, "apm transport")
		}
		http.SetServerURL(u)
		http.SetUserAgent("hey-hull")
		if cfg.SecretToken != "" {
			http.SetSecretToken(cfg.SecretToken)
		}
		transport = http
	}

	tracer, err := apm.NewTracerOptions(apm.TracerOptions{
		ServiceName: cfg.ServiceName,
		Transport:   transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, "apm tracer")
	}
	tracer.SetLogger(logger)
	tracer.SetMetricsInterval(0) // disable metrics
	return &Tracer{tracer, logger, cfg.FlushTimeout}, nil
}

// FlushAll waits for buffered events to be sent, up to the flush timeout, then closes the tracer.
func (t *Tracer) FlushAll() {
	flushed := make(chan struct{})
	go func() {
		t.Flush(nil)
		close(flushed)
	}()

	flushWait := time.After(t.timeout)
	if t.timeout == 0 {
		flushWait = make(<-chan time.Time)
	}
	select {
	case <-flushed:
	case <-flushWait:
		// give up waiting for flush
		t.logger.Errorf("timed out waiting for flush to complete")
	}
	t.Close()
}
