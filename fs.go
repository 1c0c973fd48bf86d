package ninefs

import (
	"context"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Server listens for 9P2000 connections and serves them all against one
// shared in-memory Tree. Use NewServer, then Serve.
type Server struct {
	Tree    *Tree
	Log     *logrus.Logger
	Metrics *serverMetrics
}

// NewServer builds a Server with a fresh, empty Tree. Pass a Prometheus
// registerer to export metrics (prometheus.DefaultRegisterer, or nil to
// skip registration entirely).
func NewServer(log *logrus.Logger, reg prometheus.Registerer) *Server {
	if log == nil {
		log = NewLogger(false)
	}
	return &Server{
		Tree:    NewTree(),
		Log:     log,
		Metrics: newServerMetrics(reg),
	}
}

// Serve accepts connections on ln until ctx is canceled or Accept fails,
// handling each on its own goroutine: one goroutine per connection,
// nothing shared across them except the Tree. Accept errors after ctx
// cancellation are swallowed; any other Accept error is returned.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			rwc, err := ln.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return nil
				default:
					return err
				}
			}
			c := newConn(rwc, s.Tree, s.Log, s.Metrics)
			go c.serve()
		}
	})

	return g.Wait()
}

// ListenAndServe is a convenience wrapper: it opens network/addr, serves
// it, and closes the listener when ctx is done.
func ListenAndServe(ctx context.Context, network, addr string, log *logrus.Logger, reg prometheus.Registerer) error {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return wrapf(ErrInternal, "listen %s %s: %v", network, addr, err)
	}
	return NewServer(log, reg).Serve(ctx, ln)
}
