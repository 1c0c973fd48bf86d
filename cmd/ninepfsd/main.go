// Command ninepfsd starts a 9P2000 file server keeping all files in
// memory. The filesystem is entirely maintained in memory; nothing is
// backed by disk.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/treehollow/ninefs"
)

func main() {
	var (
		addr      string
		network   string
		adminAddr string
		debug     bool
	)

	cmd := &cobra.Command{
		Use:   "ninepfsd",
		Short: "9P2000 file server keeping all files in memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := ninefs.NewLogger(debug)

			if adminAddr != "" {
				go func() {
					log.WithField("addr", adminAddr).Info("admin http listening")
					if err := serveAdmin(adminAddr); err != nil {
						log.WithError(err).Error("admin http server exited")
					}
				}()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.WithField("addr", addr).WithField("net", network).Info("listening")
			return ninefs.ListenAndServe(ctx, network, addr, log, prometheus.DefaultRegisterer)
		},
	}

	var flags *pflag.FlagSet = cmd.Flags()
	flags.StringVar(&addr, "addr", "localhost:5640", "service listen address")
	flags.StringVar(&network, "net", "tcp", "stream-oriented network")
	flags.StringVar(&adminAddr, "admin-addr", "", "HTTP address for /healthz and /metrics (disabled if empty)")
	flags.BoolVarP(&debug, "debug", "D", false, "log every 9P2000 message")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
