package participant

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
)

// BotDifficulty affects reaction time and how far the bot chases.
type BotDifficulty int

const (
	BotDifficultyEasy BotDifficulty = iota
	BotDifficultyNormal
	BotDifficultyHard
)

// BotDifficultyConfig holds tuning values for bot behavior at a specific difficulty
type BotDifficultyConfig struct {
	ReactionDelay int     // Ticks between target decisions
	ChaseRange    float64 // Distance at which a powered bot charges an opponent
	Jitter        float64 // Random steering noise, 0..1
}

// ParseBotDifficulty reads "easy", "normal" or "hard".
func ParseBotDifficulty(s string) (BotDifficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return BotDifficultyEasy, nil
	case "", "normal":
		return BotDifficultyNormal, nil
	case "hard":
		return BotDifficultyHard, nil
	}
	return BotDifficultyNormal, fmt.Errorf("unknown bot difficulty %q", s)
}

var botDifficulties = map[BotDifficulty]BotDifficultyConfig{
	BotDifficultyEasy:   {ReactionDelay: 30, ChaseRange: 120, Jitter: 0.4},
	BotDifficultyNormal: {ReactionDelay: 15, ChaseRange: 200, Jitter: 0.2},
	BotDifficultyHard:   {ReactionDelay: 5, ChaseRange: 320, Jitter: 0.05},
}

// Bot steers a headless participant: it goes for the nearest pickup while
// idle and charges the nearest opponent while powered.
type Bot struct {
	cfg    BotDifficultyConfig
	rng    *rand.Rand
	centre gamemath.Vec3

	wait   int
	target gamemath.Vec3
	aiming bool
}

// NewBot creates a bot for an arena of the given size. The seed makes runs
// reproducible.
func NewBot(d BotDifficulty, arenaWidth, arenaHeight int, seed int64) *Bot {
	cfg, ok := botDifficulties[d]
	if !ok {
		cfg = botDifficulties[BotDifficultyNormal]
	}
	return &Bot{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		centre: gamemath.Vec3{X: float64(arenaWidth) / 2, Z: float64(arenaHeight) / 2},
	}
}

// Input decides this tick's movement.
func (b *Bot) Input(self gamemath.Vec3, powered bool, pickups, opponents map[uint]gamemath.Vec3) Axes {
	if b.wait <= 0 || !b.aiming {
		b.target, b.aiming = b.choose(self, powered, pickups, opponents)
		b.wait = b.cfg.ReactionDelay
	}
	b.wait--

	if !b.aiming {
		return Axes{}
	}

	dir := b.target.Sub(self)
	if dir.Len() < 1 {
		b.aiming = false
		return Axes{}
	}
	dir = dir.Normalized()
	return Axes{
		Horizontal: gamemath.ClampSpeed(dir.X+b.noise(), 1),
		Forward:    gamemath.ClampSpeed(dir.Z+b.noise(), 1),
	}
}

func (b *Bot) choose(self gamemath.Vec3, powered bool, pickups, opponents map[uint]gamemath.Vec3) (gamemath.Vec3, bool) {
	if powered {
		if t, d, ok := nearest(self, opponents); ok && d <= b.cfg.ChaseRange {
			return t, true
		}
	}
	if t, _, ok := nearest(self, pickups); ok && !powered {
		return t, true
	}
	// Nothing to do: drift back toward the middle, away from the edge.
	if self.Sub(b.centre).Len() > 32 {
		return b.centre, true
	}
	return gamemath.Vec3{}, false
}

func (b *Bot) noise() float64 {
	if b.cfg.Jitter == 0 {
		return 0
	}
	return (b.rng.Float64()*2 - 1) * b.cfg.Jitter
}

// nearest returns the closest point to from, preferring the lowest id on ties.
func nearest(from gamemath.Vec3, points map[uint]gamemath.Vec3) (gamemath.Vec3, float64, bool) {
	var (
		best   gamemath.Vec3
		bestID uint
		bestD  = math.Inf(1)
		found  bool
	)
	for id, p := range points {
		d := p.Sub(from).Len()
		if d < bestD || (d == bestD && id < bestID) {
			best, bestID, bestD, found = p, id, d, true
		}
	}
	return best, bestD, found
}
