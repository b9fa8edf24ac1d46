package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/guarzo/poe2gradegap/internal/logging"
	"github.com/guarzo/poe2gradegap/internal/server"
)

var serveFlags struct {
	addr  string
	debug bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "Listen address (default from server.addr)")
	f.BoolVar(&serveFlags.debug, "debug", false, "Run gin in debug mode")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if !serveFlags.debug {
		gin.SetMode(gin.ReleaseMode)
	}
	addr := serveFlags.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	srv := server.New(ctx, a.analyzer, a.store, a.rates, logging.New("server"))
	return srv.Run(ctx, addr)
}
