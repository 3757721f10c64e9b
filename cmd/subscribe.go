package cmd

import (
	"encoding/json"
	"fmt"
	"lumina/collection"
	"lumina/config"
	"lumina/models"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// subscribeCmd tails parsed article events to the command line
func subscribeCmd() *cli.Command {
	return &cli.Command{
		Name:  "subscribe",
		Usage: "Log all article documents to the command line",
		Description: `Subscribe to the remote articles collection stream and log every
parsed article record to the command line.

Can be used if you want to collect the raw feed by passing the output to a
file or another application.

Returns each article as a JSON object on a single line. Use a tool like jq to
process the output.

Prints all other log messages to stderr.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/lumina.toml",
				Usage:   "Path to the configuration file",
				EnvVars: []string{"LUMINA_CONFIG"},
			},
		},
		Action: func(ctx *cli.Context) error {
			// Disable logging to stdout
			log.SetOutput(os.Stderr)

			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return err
			}

			eventChan := make(chan interface{}, 1000)
			errChan := make(chan error, 10)

			fmt.Fprintln(os.Stderr, "Subscribing to collection stream...")
			if err := collection.Subscribe(ctx.Context, collection.StreamConfig{
				Hosts:     cfg.Collection.Hosts,
				Compress:  cfg.Collection.Compress,
				UserAgent: cfg.Collection.UserAgent,
				Workers:   cfg.Collection.Workers,
				QueueSize: cfg.Collection.QueueSize,
			}, eventChan, errChan, 0); err != nil {
				return err
			}

			go func() {
				for err := range errChan {
					log.Errorf("Collection stream failure: %v", err)
				}
			}()

			// Subscribe to the event channel and log the articles
			// Stop if the context is cancelled
			for {
				select {
				case <-ctx.Context.Done():
					fmt.Fprintln(os.Stderr, "Stopping subscription")
					return nil
				case event := <-eventChan:
					switch event := event.(type) {
					case models.CreateArticleEvent:
						printStdout(&event.Article)
					case models.UpdateArticleEvent:
						printStdout(&event.Article)
					case models.DeleteArticleEvent:
						printStdout(&event.Article)
					}
				}
			}
		},
	}
}

func printStdout(article *models.Article) {
	// Print as single JSON string on a single line
	articleJson, err := json.Marshal(article)
	if err == nil {
		fmt.Println(string(articleJson))
	}
}
