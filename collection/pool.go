package collection

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Sizing defaults for the decode pool. Decoding a frame is cheap JSON
// work, so a handful of workers keeps up with the stream; the queue only
// absorbs bursts while the feed store applies a snapshot.
const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

// Pool fans raw stream frames out to a set of event processors. Each
// worker owns its processor so the zstd decoder is never shared.
type Pool struct {
	workers   int
	queue     chan *RawMessage
	config    StreamConfig
	eventChan chan interface{}
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewPool sizes the pool from the stream config, falling back to the
// defaults when a value is unset
func NewPool(ctx context.Context, config StreamConfig, eventChan chan interface{}) *Pool {
	workers := config.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:   workers,
		queue:     make(chan *RawMessage, queueSize),
		config:    config,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (p *Pool) start() {
	log.WithFields(log.Fields{
		"workers": p.workers,
		"queue":   cap(p.queue),
	}).Info("Starting stream decode pool")

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i, NewEventProcessor(p.ctx, p.config, p.eventChan))
	}
}

func (p *Pool) run(id int, processor *EventProcessor) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			log.Infof("Stream worker %d shutting down", id)
			return
		case msg := <-p.queue:
			if err := processor.processMessage(msg); err != nil {
				log.Errorf("Stream worker %d failed to process message: %v", id, err)
			}
		}
	}
}
