package game

import (
	"time"

	"github.com/tilecraft/slide/arbiter"
	"github.com/tilecraft/slide/heuristic"
	"github.com/tilecraft/slide/search"
)

const DefaultInterval = 150 * time.Millisecond

// Settings are the per-game knobs the autonomous player and the arbiter
// read on every turn.
type Settings struct {
	Identity  string
	Depth     int
	Algorithm search.Algorithm
	Weights   heuristic.Weights
	// Interval is the autonomous player's wait between turns.
	Interval time.Duration
	Pacing   arbiter.Pacing
}

func DefaultSettings() Settings {
	return Settings{
		Depth:     search.DefaultDepth,
		Algorithm: search.Expectimax,
		Weights:   heuristic.DefaultWeights,
		Interval:  DefaultInterval,
		Pacing:    arbiter.DefaultPacing(),
	}
}

func (g *Game) Settings() Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settings
}

// UpdateSettings applies fn to the settings under the game lock.
func (g *Game) UpdateSettings(fn func(*Settings)) Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.settings)
	return g.settings
}
