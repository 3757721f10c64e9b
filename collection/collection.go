package collection

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Subscribe connects to the collection stream and starts the processor
// pool. Typed events come out on eventChan; transport failures on errs.
// Resumes from cursor when the cache remembers one.
func Subscribe(ctx context.Context, config StreamConfig, eventChan chan interface{}, errs chan error, cursor int64) error {
	config.Cursor = cursor
	if len(config.Collections) == 0 {
		config.Collections = []string{ArticlesCollection}
	}

	log.WithFields(log.Fields{
		"hosts":  config.Hosts,
		"cursor": cursor,
	}).Info("Starting collection subscription")

	pool := NewPool(ctx, config, eventChan)

	if err := SubscribeStreamWithMessages(ctx, config, pool.queue, errs); err != nil {
		return err
	}

	pool.start()

	return nil
}
