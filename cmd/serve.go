package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tubetodo/internal/server"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// router assembles the JSON API with recovery and request logging.
func (r *Runner) router() *server.BasicRouter {
	logger := shared.WithLogger(r.logger, "component", "server")

	router := server.NewBasicRouter()
	router.Use(server.RecoverMiddleware(logger), server.LoggingMiddleware(logger))
	router.Handler(server.NewAPI(server.APIOpts{
		Resolver:   r.resolver,
		Direct:     r.discovery(false),
		Relay:      r.discovery(true),
		Candidates: r.config.Discovery.Candidates,
		Defaults:   r.credentials,
		Logger:     r.logger,
	}))
	return router
}

// Serve runs the JSON API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.useSettings()

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	router := r.router()
	for _, p := range router.Patterns() {
		r.logger.Debug("route", "pattern", p)
	}
	return server.Run(ctx, server.New(addr, router), r.logger)
}
