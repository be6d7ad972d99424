package game

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// HumanLabel is the algorithm recorded for matches played by hand.
const HumanLabel = "Human"

// ErrAnonymous is returned by recorders that only keep results for known
// identities.
var ErrAnonymous = errors.New("result has no identity")

// Result is what gets recorded when a match ends.
type Result struct {
	Identity   string `json:"identity"`
	Score      int    `json:"score"`
	MaxTile    int    `json:"maxTile"`
	Moves      int    `json:"moves"`
	Autonomous bool   `json:"isAi"`
	Algorithm  string `json:"algoName"`
}

// Recorder persists finished matches and knows each identity's best score.
type Recorder interface {
	SubmitResult(ctx context.Context, r Result) error
	// PersonalBest returns 0 for unknown or anonymous identities.
	PersonalBest(ctx context.Context, identity string) (int, error)
}

func (g *Game) resultLocked() Result {
	algo := HumanLabel
	if g.autoplay {
		algo = string(g.settings.Algorithm)
	}
	return Result{
		Identity:   g.settings.Identity,
		Score:      g.score,
		MaxTile:    g.board.MaxValue(),
		Moves:      g.moves,
		Autonomous: g.autoplay,
		Algorithm:  algo,
	}
}

func (g *Game) submit(r Result) {
	if g.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := g.recorder.SubmitResult(ctx, r); err != nil {
		if errors.Is(err, ErrAnonymous) {
			log.Debug().Msg("anonymous-result-not-saved")
		} else {
			log.Err(err).Msg("submit-result-failed")
		}
		return
	}
	log.Info().Int("score", r.Score).Str("algorithm", r.Algorithm).Msg("result-saved")
	g.syncBest(ctx)
}

// syncBest raises the best score to the recorder's personal best.
func (g *Game) syncBest(ctx context.Context) {
	if g.recorder == nil {
		return
	}
	g.mu.Lock()
	identity := g.settings.Identity
	g.mu.Unlock()
	best, err := g.recorder.PersonalBest(ctx, identity)
	if err != nil {
		log.Err(err).Msg("personal-best-failed")
		return
	}
	g.mu.Lock()
	if best > g.best {
		g.best = best
	}
	g.mu.Unlock()
}
