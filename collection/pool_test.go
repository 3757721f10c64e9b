package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPoolSizedFromConfig(t *testing.T) {
	eventChan := make(chan interface{}, 1)

	tests := []struct {
		name      string
		config    StreamConfig
		workers   int
		queueSize int
	}{
		{
			name:      "defaults when unset",
			config:    StreamConfig{},
			workers:   defaultWorkers,
			queueSize: defaultQueueSize,
		},
		{
			name:      "explicit sizing",
			config:    StreamConfig{Workers: 2, QueueSize: 32},
			workers:   2,
			queueSize: 32,
		},
		{
			name:      "negative values fall back",
			config:    StreamConfig{Workers: -1, QueueSize: -1},
			workers:   defaultWorkers,
			queueSize: defaultQueueSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(context.Background(), tt.config, eventChan)
			defer pool.cancel()

			assert.Equal(t, tt.workers, pool.workers)
			assert.Equal(t, tt.queueSize, cap(pool.queue))
		})
	}
}
