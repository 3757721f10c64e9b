package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceHostBacksOffOncePerRound(t *testing.T) {
	t.Run("single host backs off every attempt", func(t *testing.T) {
		next, roundDone := advanceHost(0, 1)
		assert.Equal(t, 0, next)
		assert.True(t, roundDone)
	})

	t.Run("multiple hosts back off only on wrap", func(t *testing.T) {
		// A full outage over three hosts: two free switches, then one
		// backoff when the rotation wraps
		next, roundDone := advanceHost(0, 3)
		assert.Equal(t, 1, next)
		assert.False(t, roundDone)

		next, roundDone = advanceHost(next, 3)
		assert.Equal(t, 2, next)
		assert.False(t, roundDone)

		next, roundDone = advanceHost(next, 3)
		assert.Equal(t, 0, next)
		assert.True(t, roundDone)
	})
}
