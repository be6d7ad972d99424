package autoplay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/tilecraft/slide/arbiter"
	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/game"
	"github.com/tilecraft/slide/mechanics"
	"github.com/tilecraft/slide/search"
)

type moverFunc func(ctx context.Context, req search.Request) (board.Direction, error)

func (f moverFunc) RequestMove(ctx context.Context, req search.Request) (board.Direction, error) {
	return f(ctx, req)
}

func newGame(t *testing.T, grid board.Grid) *game.Game {
	t.Helper()
	s := game.DefaultSettings()
	s.Pacing = arbiter.Pacing{}
	s.Interval = 0
	g := game.New(s, mechanics.NewSource(5), nil)
	b, err := board.FromGrid(grid, 1)
	if err != nil {
		t.Fatal(err)
	}
	g.Load(b, 0)
	t.Cleanup(g.Close)
	return g
}

func withTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunPlaysUntilGameOver(t *testing.T) {
	is := is.New(t)
	g := newGame(t, board.Grid{
		{0, 8, 16, 32},
		{64, 128, 256, 512},
		{8, 16, 32, 64},
		{64, 128, 256, 1024},
	})
	g.SetAutoplay(true)
	p := NewPlayer(g, search.NewLocal(search.Options{Seed: 3}))
	is.NoErr(p.Run(withTimeout(t)))
	snap := g.Snapshot()
	is.True(snap.Over)
	is.True(p.Turns() >= 1)
	is.Equal(int64(snap.Moves), p.Turns())
	is.True(!p.Running())
}

func TestRequestCarriesSettings(t *testing.T) {
	is := is.New(t)
	g := newGame(t, board.Grid{{2, 0, 0, 0}})
	g.UpdateSettings(func(s *game.Settings) {
		s.Depth = 5
		s.Algorithm = search.Minimax
	})
	g.SetAutoplay(true)
	var got search.Request
	p := NewPlayer(g, moverFunc(func(ctx context.Context, req search.Request) (board.Direction, error) {
		got = req
		return board.NoDirection, nil
	}))
	is.NoErr(p.Run(withTimeout(t)))
	is.Equal(got.Depth, 5)
	is.Equal(got.Algorithm, search.Minimax)
	is.Equal(got.Grid, board.Grid{{2, 0, 0, 0}})
}

func TestNoMoveStopsAutoplay(t *testing.T) {
	is := is.New(t)
	g := newGame(t, board.Grid{{2, 0, 0, 0}})
	g.SetAutoplay(true)
	p := NewPlayer(g, moverFunc(func(context.Context, search.Request) (board.Direction, error) {
		return board.NoDirection, nil
	}))
	is.NoErr(p.Run(withTimeout(t)))
	snap := g.Snapshot()
	is.True(!snap.Autoplay)
	is.Equal(snap.Moves, 0)
}

func TestMoverFailureAbortsAutoplay(t *testing.T) {
	is := is.New(t)
	g := newGame(t, board.Grid{{2, 0, 0, 0}})
	before := g.Snapshot()
	g.SetAutoplay(true)
	boom := errors.New("backend unreachable")
	p := NewPlayer(g, moverFunc(func(context.Context, search.Request) (board.Direction, error) {
		return board.NoDirection, boom
	}))
	err := p.Run(withTimeout(t))
	is.True(errors.Is(err, boom))
	snap := g.Snapshot()
	is.True(!snap.Autoplay)
	is.Equal(snap.Board.Grid(), before.Board.Grid())
	is.Equal(snap.Score, before.Score)
}

func TestStaleResponseIsDropped(t *testing.T) {
	is := is.New(t)
	g := newGame(t, board.Grid{{2, 0, 0, 0}})
	g.SetAutoplay(true)
	p := NewPlayer(g, moverFunc(func(context.Context, search.Request) (board.Direction, error) {
		// the user switches autoplay off while the search is running.
		g.SetAutoplay(false)
		return board.Right, nil
	}))
	is.NoErr(p.Run(withTimeout(t)))
	is.Equal(g.Snapshot().Moves, 0)
	is.Equal(p.Turns(), int64(0))
}

func TestNewGameMakesResponseStale(t *testing.T) {
	is := is.New(t)
	g := newGame(t, board.Grid{{2, 0, 0, 0}})
	g.SetAutoplay(true)
	p := NewPlayer(g, moverFunc(func(ctx context.Context, _ search.Request) (board.Direction, error) {
		g.NewGame(ctx)
		return board.Right, nil
	}))
	is.NoErr(p.Run(withTimeout(t)))
	snap := g.Snapshot()
	is.Equal(snap.Moves, 0)
	is.Equal(snap.Board.Len(), 2)
}

func TestSingleLoop(t *testing.T) {
	is := is.New(t)
	g := newGame(t, board.Grid{{2, 0, 0, 0}})
	g.SetAutoplay(true)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	p := NewPlayer(g, moverFunc(func(context.Context, search.Request) (board.Direction, error) {
		once.Do(func() { close(entered) })
		<-release
		return board.NoDirection, nil
	}))
	done := make(chan error)
	go func() { done <- p.Run(withTimeout(t)) }()
	<-entered
	is.Equal(p.Run(withTimeout(t)), ErrAlreadyRunning)
	close(release)
	is.NoErr(<-done)
}

func TestCancelStopsLoop(t *testing.T) {
	is := is.New(t)
	g := newGame(t, board.Grid{{2, 0, 0, 0}})
	g.SetAutoplay(true)
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPlayer(g, moverFunc(func(ctx context.Context, _ search.Request) (board.Direction, error) {
		cancel()
		<-ctx.Done()
		return board.NoDirection, ctx.Err()
	}))
	err := p.Run(ctx)
	is.True(errors.Is(err, context.Canceled))
	// cancellation is not a mover failure.
	is.True(g.Snapshot().Autoplay)
}

func TestStartDuringWindDownIsNotLost(t *testing.T) {
	is := is.New(t)
	g := newGame(t, board.Grid{{2, 0, 0, 0}})
	ctx := withTimeout(t)
	calls := 0
	p := NewPlayer(g, moverFunc(func(context.Context, search.Request) (board.Direction, error) {
		calls++
		return board.NoDirection, nil
	}))
	// autoplay is switched on after the loop saw it off, while the loop
	// still holds the running flag.
	windDownHook = func() {
		windDownHook = func() {}
		p.Start(ctx)
	}
	t.Cleanup(func() { windDownHook = func() {} })

	is.NoErr(p.Run(ctx))
	is.Equal(calls, 1)
	is.True(!g.Snapshot().Autoplay)
	is.True(!p.Running())
}
