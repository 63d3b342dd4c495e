package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/darshan-golchha/code-complexity/internal/web"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFrom(cmd.Context())
		if err != nil {
			return err
		}
		addr := cfg.ListenAddr
		if listenAddr != "" {
			addr = listenAddr
		}

		session, err := openSession(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		session.Mount(ctx)
		defer session.Unmount()

		return web.NewServer(session, log.WithField("mode", cfg.Mode)).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "override the configured listen address")
}
