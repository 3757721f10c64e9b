package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"lumina/collection"
	"lumina/config"
	"lumina/db"
	"lumina/feed"
	"lumina/imgproxy"
	"lumina/server"
	"lumina/themes"
)

// serveCmd runs the full pipeline: collection subscription, cache writer,
// feed store and HTTP server
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the lumina feed",
		Description: `Starts the lumina feed HTTP server and collection subscriber.

Launches the HTTP server on the specified or default port and subscribes to the
remote articles collection stream. All published articles are kept materialized
in memory and mirrored to the SQLite cache; clients read the feed over HTTP or
follow it live over SSE.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "feed.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"LUMINA_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "hostname",
				Aliases: []string{"n"},
				Value:   "localhost",
				Usage:   "The hostname where the server is running",
				EnvVars: []string{"LUMINA_HOSTNAME"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "The port to listen on",
				EnvVars: []string{"LUMINA_PORT"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/lumina.toml",
				Usage:   "Path to the configuration file",
				EnvVars: []string{"LUMINA_CONFIG"},
			},
		},
		Action: func(ctx *cli.Context) error {
			fmt.Println("Starting lumina...")

			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return err
			}

			database := ctx.String("database")
			if err := db.Migrate(database); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			writerChan := make(chan interface{}, 1000)
			eventChan := make(chan interface{}, 1000)
			errChan := make(chan error, 10)

			writer, err := db.NewWriter(database, writerChan)
			if err != nil {
				return fmt.Errorf("failed to open cache writer: %w", err)
			}

			reader, err := db.NewReader(database)
			if err != nil {
				return fmt.Errorf("failed to open cache reader: %w", err)
			}

			store := feed.NewStore()

			// Seed the store with the last known collection state so the
			// feed is servable before the live stream catches up
			cached, err := reader.GetArticles()
			if err != nil {
				log.Errorf("Failed to seed feed from cache: %v", err)
			} else {
				store.Seed(cached)
			}

			cursor, err := reader.GetSequence()
			if err != nil {
				log.Errorf("Failed to read stream cursor: %v", err)
			}

			table := themes.NewTableWithOverrides(themeOverrides(cfg))
			resolver := imgproxy.Resolver{Base: cfg.Proxy.Base}

			bc := server.NewBroadcaster()
			app := server.Server(&server.ServerConfig{
				Hostname:    ctx.String("hostname"),
				Store:       store,
				Reader:      reader,
				Themes:      table,
				ImageProxy:  resolver,
				Broadcaster: bc,
			})

			streamCtx, stopStream := context.WithCancel(ctx.Context)
			defer stopStream()

			// Fan incoming events out to the feed store and the cache writer
			go func() {
				for event := range eventChan {
					store.Apply(event)
					select {
					case writerChan <- event:
					default:
						log.Warn("Cache writer queue full, dropping event")
					}
				}
			}()

			// Surface transport failures on every feed subscription
			go func() {
				for err := range errChan {
					log.Errorf("Collection stream failure: %v", err)
					store.Fail(err)
				}
			}()

			// Bridge the feed store to the SSE broadcaster
			sub := store.Subscribe()
			go func() {
				for snapshot := range sub.Updates() {
					bc.BroadcastFeed(snapshot)
				}
			}()

			go writer.Subscribe()

			go func() {
				fmt.Println("Subscribing to collection stream...")
				if err := collection.Subscribe(streamCtx, collection.StreamConfig{
					Hosts:     cfg.Collection.Hosts,
					Compress:  cfg.Collection.Compress,
					UserAgent: cfg.Collection.UserAgent,
					Workers:   cfg.Collection.Workers,
					QueueSize: cfg.Collection.QueueSize,
				}, eventChan, errChan, cursor); err != nil {
					log.Errorf("Failed to subscribe to collection stream: %v", err)
					store.Fail(err)
				}
			}()

			// Graceful shutdown
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt)

			go func() {
				<-quit
				fmt.Println("Gracefully shutting down...")
				stopStream()
				sub.Cancel()
				store.Shutdown()
				bc.Shutdown()
				app.ShutdownWithTimeout(60 * time.Second)
			}()

			fmt.Println("Starting server...")
			if err := app.Listen(fmt.Sprintf(":%d", ctx.Int("port"))); err != nil {
				return err
			}

			writer.Close()
			reader.Close()

			fmt.Println("Done!")
			return nil
		},
	}
}

// themeOverrides maps config palette overrides onto theme values
func themeOverrides(cfg *config.TomlConfig) map[string]themes.Theme {
	if len(cfg.Themes) == 0 {
		return nil
	}
	overrides := make(map[string]themes.Theme, len(cfg.Themes))
	for key, theme := range cfg.Themes {
		overrides[key] = themes.Theme{
			Base:          theme.Base,
			Accent:        theme.Accent,
			Text:          theme.Text,
			TextSecondary: theme.TextSecondary,
		}
	}
	return overrides
}
