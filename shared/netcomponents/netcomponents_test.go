package netcomponents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLerpNetPosition(t *testing.T) {
	from := NetPositionData{X: 0, Y: 0, Z: 10}
	to := NetPositionData{X: 10, Y: 2, Z: 0}

	mid := LerpNetPosition(from, to, 0.5)
	assert.Equal(t, NetPositionData{X: 5, Y: 1, Z: 5}, *mid)

	assert.Equal(t, from, *LerpNetPosition(from, to, 0))
	assert.Equal(t, to, *LerpNetPosition(from, to, 1))
}

func TestLerpNetVelocity(t *testing.T) {
	got := LerpNetVelocity(NetVelocityData{X: 2}, NetVelocityData{X: 4, Z: -2}, 0.25)
	assert.InDelta(t, 2.5, got.X, 1e-9)
	assert.InDelta(t, -0.5, got.Z, 1e-9)
}
