package cmd

import (
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "lumina",
		Usage: "Live feed service for the Lumina short-form article reader",
		Description: `Serves the Lumina article feed to the mobile and web reader apps.

		Lumina works by subscribing to the remote articles collection stream,
		mapping every document into a validated article record and keeping the
		current published list materialized in memory and in a local SQLite
		cache. Consumers get the full ordered list over HTTP or SSE, annotated
		with the presentation theme for each article type and, for web clients,
		an image URL rewritten to pass through the CORS proxy.

		Flags can generally be set via environment variables, e.g.:

		--database => LUMINA_DATABASE=feed.db
		--port => LUMINA_PORT=8080
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
			subscribeCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}
