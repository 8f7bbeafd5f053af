package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionDecay(t *testing.T) {
	assert.Equal(t, 1.0, positionDecay(0))
	assert.Equal(t, 0.5, positionDecay(1))
	assert.InDelta(t, 0.1, positionDecay(9), 1e-9)

	// a malformed negative position counts as the top slot
	assert.Equal(t, 1.0, positionDecay(-3))
}
