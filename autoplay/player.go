// Package autoplay drives a game with a search engine. The player asks a
// Mover for a direction, queues it like any other command and waits for the
// configured turn interval before asking again.
package autoplay

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/game"
	"github.com/tilecraft/slide/search"
)

var ErrAlreadyRunning = errors.New("autonomous player already running")

// windDownHook runs after the turn loop exits and before the running flag
// is cleared.
var windDownHook = func() {}

// Mover answers autonomous-move requests. search.Local does it in-process;
// bot.Client asks a remote bot.
type Mover interface {
	RequestMove(ctx context.Context, req search.Request) (board.Direction, error)
}

type Player struct {
	game    *game.Game
	mover   Mover
	running atomic.Bool
	turns   atomic.Int64
}

func NewPlayer(g *game.Game, m Mover) *Player {
	return &Player{game: g, mover: m}
}

func (p *Player) Running() bool {
	return p.running.Load()
}

// Turns is the number of moves the player has queued.
func (p *Player) Turns() int64 {
	return p.turns.Load()
}

// Start turns autoplay on and runs the player in the background. It is a
// no-op if a loop is already running.
func (p *Player) Start(ctx context.Context) {
	p.game.SetAutoplay(true)
	if p.running.Load() {
		return
	}
	go func() {
		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) &&
			!errors.Is(err, ErrAlreadyRunning) {
			log.Err(err).Msg("autoplay-ended")
		}
	}()
}

// Run plays turns until autoplay is switched off, the game ends, the mover
// fails or ctx is done.
func (p *Player) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	for {
		err := p.loop(ctx)
		windDownHook()
		p.running.Store(false)
		if err != nil {
			return err
		}
		// a Start that saw the flag still set left this session to us.
		snap := p.game.Snapshot()
		if !snap.Autoplay || snap.Over || !p.running.CompareAndSwap(false, true) {
			return nil
		}
	}
}

func (p *Player) loop(ctx context.Context) error {
	for {
		more, err := p.Turn(ctx)
		if err != nil || !more {
			return err
		}
		if err := sleep(ctx, p.game.Settings().Interval); err != nil {
			return err
		}
	}
}

// Turn plays one autonomous turn. It reports whether the loop should go on.
func (p *Player) Turn(ctx context.Context) (bool, error) {
	// never search a board that still has moves queued against it.
	if err := p.game.WaitIdle(ctx); err != nil {
		return false, err
	}
	snap := p.game.Snapshot()
	if !snap.Autoplay || snap.Over {
		return false, nil
	}
	set := p.game.Settings()
	req := search.Request{
		Grid:      snap.Board.Grid(),
		Depth:     set.Depth,
		Algorithm: set.Algorithm,
		Weights:   set.Weights,
	}
	d, err := p.mover.RequestMove(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		p.game.AbortAutoplay(err)
		return false, err
	}

	cur := p.game.Snapshot()
	if cur.Generation != snap.Generation || !cur.Autoplay {
		log.Debug().Uint64("sent", snap.Generation).Uint64("now", cur.Generation).
			Msg("stale-move-dropped")
		return true, nil
	}
	if d == board.NoDirection {
		p.game.AbortAutoplay(nil)
		return false, nil
	}
	p.game.Move(d)
	p.turns.Add(1)
	return true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
