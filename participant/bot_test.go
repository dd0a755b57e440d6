package participant

import (
	"testing"

	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/stretchr/testify/assert"
)

func noJitterBot() *Bot {
	b := NewBot(BotDifficultyHard, 640, 640, 1)
	b.cfg.Jitter = 0
	return b
}

func TestBotSeeksNearestPickupWhileIdle(t *testing.T) {
	b := noJitterBot()
	self := gamemath.Vec3{X: 320, Z: 320}
	pickups := map[uint]gamemath.Vec3{
		1: {X: 320, Z: 100},
		2: {X: 400, Z: 320},
	}
	opponents := map[uint]gamemath.Vec3{3: {X: 300, Z: 320}}

	in := b.Input(self, false, pickups, opponents)
	assert.InDelta(t, 1.0, in.Horizontal, 1e-9)
	assert.InDelta(t, 0.0, in.Forward, 1e-9)
}

func TestBotChargesOpponentWhilePowered(t *testing.T) {
	b := noJitterBot()
	self := gamemath.Vec3{X: 320, Z: 320}
	pickups := map[uint]gamemath.Vec3{1: {X: 330, Z: 320}}
	opponents := map[uint]gamemath.Vec3{3: {X: 320, Z: 200}}

	in := b.Input(self, true, pickups, opponents)
	assert.InDelta(t, 0.0, in.Horizontal, 1e-9)
	assert.InDelta(t, -1.0, in.Forward, 1e-9)
}

func TestBotIgnoresFarOpponent(t *testing.T) {
	b := noJitterBot()
	self := gamemath.Vec3{X: 100, Z: 320}
	opponents := map[uint]gamemath.Vec3{3: {X: 600, Z: 320}}

	// Out of chase range: head back to the centre instead.
	in := b.Input(self, true, nil, opponents)
	assert.InDelta(t, 1.0, in.Horizontal, 1e-9)
}

func TestBotRestsAtCentre(t *testing.T) {
	b := noJitterBot()
	assert.Equal(t, Axes{}, b.Input(gamemath.Vec3{X: 330, Z: 320}, false, nil, nil))
}

func TestBotDeterministicPerSeed(t *testing.T) {
	self := gamemath.Vec3{X: 100, Z: 100}
	pickups := map[uint]gamemath.Vec3{1: {X: 500, Z: 300}}

	a := NewBot(BotDifficultyEasy, 640, 640, 42)
	b := NewBot(BotDifficultyEasy, 640, 640, 42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Input(self, false, pickups, nil), b.Input(self, false, pickups, nil))
	}
}

func TestNearestBreaksTiesByID(t *testing.T) {
	points := map[uint]gamemath.Vec3{
		5: {X: 10},
		2: {X: -10},
	}
	got, d, ok := nearest(gamemath.Vec3{}, points)
	assert.True(t, ok)
	assert.Equal(t, 10.0, d)
	assert.Equal(t, gamemath.Vec3{X: -10}, got)

	_, _, ok = nearest(gamemath.Vec3{}, nil)
	assert.False(t, ok)
}

func TestParseBotDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    BotDifficulty
		wantErr bool
	}{
		{"easy", BotDifficultyEasy, false},
		{"", BotDifficultyNormal, false},
		{" HARD ", BotDifficultyHard, false},
		{"nightmare", BotDifficultyNormal, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBotDifficulty(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
