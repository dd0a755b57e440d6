package network

import (
	"testing"
	"time"

	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 50 * time.Millisecond

func TestPredictionBufferStoreGet(t *testing.T) {
	var pb PredictionBuffer
	pb.Store(messages.PlayerInput{Sequence: 1, Horizontal: 1}, tick, gamemath.Vec3{X: 10})

	rec, ok := pb.Get(1)
	require.True(t, ok)
	assert.Equal(t, 1.0, rec.Input.Horizontal)
	assert.Equal(t, gamemath.Vec3{X: 10}, rec.Predicted)
	assert.Equal(t, tick, rec.Step)
	assert.Equal(t, uint32(2), pb.NextSeq())

	_, ok = pb.Get(2)
	assert.False(t, ok)
}

func TestPredictionBufferOverwrite(t *testing.T) {
	var pb PredictionBuffer
	pb.Store(messages.PlayerInput{Sequence: 3}, tick, gamemath.Vec3{})
	pb.Store(messages.PlayerInput{Sequence: 3 + predictionBufferSize}, tick, gamemath.Vec3{})

	_, ok := pb.Get(3)
	assert.False(t, ok, "slot reused by a later sequence")
}

func TestPredictionBufferUnacknowledged(t *testing.T) {
	var pb PredictionBuffer
	for seq := uint32(1); seq <= 5; seq++ {
		pb.Store(messages.PlayerInput{Sequence: seq}, tick, gamemath.Vec3{X: float64(seq)})
	}

	pending := pb.Unacknowledged(3)
	require.Len(t, pending, 2)
	assert.Equal(t, uint32(4), pending[0].Input.Sequence)
	assert.Equal(t, uint32(5), pending[1].Input.Sequence)
	assert.Empty(t, pb.Unacknowledged(5))
}

func TestPredictionError(t *testing.T) {
	var pb PredictionBuffer
	pb.Store(messages.PlayerInput{Sequence: 1}, tick, gamemath.Vec3{X: 3, Z: 4})

	assert.InDelta(t, 5.0, pb.PredictionError(1, gamemath.Vec3{}), 1e-9)
	assert.Zero(t, pb.PredictionError(9, gamemath.Vec3{}))
}
