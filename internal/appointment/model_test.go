package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalStatesHaveNoEdges(t *testing.T) {
	all := []Status{StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled}
	for _, from := range []Status{StatusCompleted, StatusCancelled} {
		assert.True(t, from.Terminal())
		for _, to := range all {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCancelReachableFromEveryNonTerminalState(t *testing.T) {
	for _, from := range []Status{StatusScheduled, StatusConfirmed, StatusInProgress} {
		assert.False(t, from.Terminal())
		assert.True(t, CanTransition(from, StatusCancelled), from)
	}
}

func TestForwardPath(t *testing.T) {
	assert.True(t, CanTransition(StatusScheduled, StatusConfirmed))
	assert.True(t, CanTransition(StatusConfirmed, StatusInProgress))
	assert.True(t, CanTransition(StatusInProgress, StatusCompleted))

	assert.False(t, CanTransition(StatusScheduled, StatusCompleted))
	assert.False(t, CanTransition(StatusConfirmed, StatusConfirmed))
	assert.False(t, CanTransition(StatusConfirmed, StatusScheduled))
	assert.False(t, Status("pending").Valid())
}
