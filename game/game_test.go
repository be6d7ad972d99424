package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/tilecraft/slide/arbiter"
	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/mechanics"
)

type fakeRecorder struct {
	mu      sync.Mutex
	results []Result
	best    int
}

func (f *fakeRecorder) SubmitResult(ctx context.Context, r Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

func (f *fakeRecorder) PersonalBest(ctx context.Context, identity string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if identity == "" {
		return 0, nil
	}
	return f.best, nil
}

func (f *fakeRecorder) Results() []Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Result(nil), f.results...)
}

func newTestGame(rec Recorder) *Game {
	s := DefaultSettings()
	s.Identity = "alice"
	s.Pacing = arbiter.Pacing{}
	return New(s, mechanics.NewSource(42), rec)
}

func settle(t *testing.T, g *Game) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.WaitIdle(ctx); err != nil {
		t.Fatal(err)
	}
}

func flush(t *testing.T, g *Game) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.Flush(ctx); err != nil {
		t.Fatal(err)
	}
}

func load(t *testing.T, g *Game, grid board.Grid, score int) board.Board {
	t.Helper()
	b, err := board.FromGrid(grid, 1)
	if err != nil {
		t.Fatal(err)
	}
	g.Load(b, score)
	return b
}

func TestNewGameDealsTwoTiles(t *testing.T) {
	is := is.New(t)
	rec := &fakeRecorder{best: 300}
	g := newTestGame(rec)
	defer g.Close()

	g.NewGame(context.Background())
	snap := g.Snapshot()
	is.Equal(snap.Board.Len(), 2)
	is.Equal(snap.Score, 0)
	is.Equal(snap.Moves, 0)
	is.True(!snap.Over)
	is.True(!snap.CanUndo)
	is.Equal(snap.Best, 300) // synced from the recorder
	for _, tl := range snap.Board.Tiles() {
		is.True(tl.Value == 2 || tl.Value == 4)
		is.True(tl.JustSpawned)
	}
	first := snap.Generation
	g.NewGame(context.Background())
	is.Equal(g.Snapshot().Generation, first+1)
}

func TestNewGameTurnsAutoplayOff(t *testing.T) {
	is := is.New(t)
	g := newTestGame(nil)
	defer g.Close()
	g.SetAutoplay(true)
	g.NewGame(context.Background())
	is.True(!g.Snapshot().Autoplay)
}

func TestMoveCommits(t *testing.T) {
	is := is.New(t)
	g := newTestGame(nil)
	defer g.Close()
	load(t, g, board.Grid{{2, 2, 4, 0}}, 10)

	g.Move(board.Left)
	settle(t, g)
	snap := g.Snapshot()
	is.Equal(snap.Score, 14)
	is.Equal(snap.Best, 14)
	is.Equal(snap.Moves, 1)
	is.True(snap.CanUndo)
	// two tiles after the merge, plus the spawn.
	is.Equal(snap.Board.Len(), 3)
	grid := snap.Board.Grid()
	is.Equal(grid[0][0], 4)
	is.Equal(grid[0][1], 4)
}

func TestIllegalMoveIsDropped(t *testing.T) {
	is := is.New(t)
	g := newTestGame(nil)
	defer g.Close()
	b := load(t, g, board.Grid{{2, 4, 0, 0}}, 0)

	g.Move(board.Left)
	g.Move(board.Up)
	settle(t, g)
	snap := g.Snapshot()
	is.Equal(snap.Moves, 0)
	is.Equal(snap.Board.Grid(), b.Grid())
	is.True(!snap.CanUndo)
}

func TestUndo(t *testing.T) {
	is := is.New(t)
	g := newTestGame(nil)
	defer g.Close()
	b := load(t, g, board.Grid{{2, 0, 0, 0}}, 0)

	is.True(!g.Undo())

	g.Move(board.Right)
	settle(t, g)
	is.Equal(g.Snapshot().Moves, 1)

	is.True(g.Undo())
	snap := g.Snapshot()
	is.Equal(snap.Board.Grid(), b.Grid())
	is.Equal(snap.Score, -UndoPenalty)
	is.Equal(snap.Moves, 0)
	is.True(!g.Undo())
	is.Equal(g.Snapshot().Moves, 0)
}

func TestUndoHistoryIsCapped(t *testing.T) {
	is := is.New(t)
	g := newTestGame(nil)
	defer g.Close()
	load(t, g, board.Grid{{2, 0, 0, 0}, {0, 0, 4, 0}}, 0)

	for i := 0; i < 100 && g.Snapshot().Moves < HistoryLimit+2; i++ {
		g.Move(board.Directions[i%4])
		settle(t, g)
	}
	is.Equal(g.Snapshot().Moves, HistoryLimit+2)

	undone := 0
	for g.Undo() {
		undone++
	}
	is.Equal(undone, HistoryLimit)
	is.Equal(g.Snapshot().Moves, 2)
}

func TestUndoDisabledDuringAutoplay(t *testing.T) {
	is := is.New(t)
	g := newTestGame(nil)
	defer g.Close()
	load(t, g, board.Grid{{2, 0, 0, 0}}, 0)
	g.Move(board.Right)
	settle(t, g)

	is.True(g.ToggleAutoplay())
	is.True(!g.Snapshot().CanUndo)
	is.True(!g.Undo())
	is.True(!g.ToggleAutoplay())
	is.True(g.Undo())
}

// After Left the only empty cell is (0,3), and neither a 2 nor a 4 there
// has an equal neighbour.
var almostOver = board.Grid{
	{0, 8, 16, 32},
	{64, 128, 256, 512},
	{8, 16, 32, 64},
	{64, 128, 256, 1024},
}

func TestGameOverSubmitsResult(t *testing.T) {
	is := is.New(t)
	rec := &fakeRecorder{best: 5000}
	g := newTestGame(rec)
	defer g.Close()
	load(t, g, almostOver, 100)

	g.Move(board.Left)
	settle(t, g)
	flush(t, g)
	snap := g.Snapshot()
	is.True(snap.Over)
	is.Equal(snap.Best, 5000)

	res := rec.Results()
	is.Equal(len(res), 1)
	is.Equal(res[0], Result{
		Identity:  "alice",
		Score:     100,
		MaxTile:   1024,
		Moves:     1,
		Algorithm: HumanLabel,
	})

	// moves after the end are ignored.
	g.Move(board.Right)
	settle(t, g)
	is.Equal(g.Snapshot().Moves, 1)

	// undo brings the game back.
	is.True(g.Undo())
	is.True(!g.Snapshot().Over)
}

func TestAutonomousResultCarriesAlgorithm(t *testing.T) {
	is := is.New(t)
	rec := &fakeRecorder{}
	g := newTestGame(rec)
	defer g.Close()
	load(t, g, almostOver, 0)
	g.SetAutoplay(true)
	g.Move(board.Left)
	settle(t, g)
	flush(t, g)

	res := rec.Results()
	is.Equal(len(res), 1)
	is.True(res[0].Autonomous)
	is.Equal(res[0].Algorithm, string(g.Settings().Algorithm))
}

type slowRecorder struct {
	fakeRecorder
	release chan struct{}
}

func (s *slowRecorder) SubmitResult(ctx context.Context, r Result) error {
	<-s.release
	return s.fakeRecorder.SubmitResult(ctx, r)
}

func TestSlowRecorderDoesNotHoldTheQueue(t *testing.T) {
	is := is.New(t)
	rec := &slowRecorder{release: make(chan struct{})}
	g := newTestGame(rec)
	defer g.Close()
	load(t, g, almostOver, 100)

	g.Move(board.Left)
	settle(t, g)
	is.True(g.Snapshot().Over)
	is.Equal(len(rec.Results()), 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	is.Equal(g.Flush(ctx), context.DeadlineExceeded)

	// undo and new moves are served while the result is still in flight.
	is.True(g.Undo())
	g.Move(board.Left)
	settle(t, g)
	is.Equal(g.Snapshot().Moves, 1)

	close(rec.release)
	flush(t, g)
	is.Equal(len(rec.Results()), 2)
}

func TestAutoplayToggleClearsQueue(t *testing.T) {
	is := is.New(t)
	s := DefaultSettings()
	s.Pacing = arbiter.Pacing{Settle: 50 * time.Millisecond}
	g := New(s, mechanics.NewSource(1), nil)
	defer g.Close()
	load(t, g, board.Grid{{2, 0, 0, 0}}, 0)

	g.Move(board.Right)
	g.Move(board.Left)
	g.Move(board.Right)
	g.Move(board.Left)
	g.SetAutoplay(true)
	is.Equal(g.Pending(), 0)
	settle(t, g)
	is.True(g.Snapshot().Moves <= 1)
}

func TestObserversSeeCommittedSnapshots(t *testing.T) {
	is := is.New(t)
	g := newTestGame(nil)
	defer g.Close()
	load(t, g, board.Grid{{2, 0, 0, 0}}, 0)

	var mu sync.Mutex
	var seen []Snapshot
	unsub := g.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	g.Move(board.Right)
	settle(t, g)
	unsub()
	g.Move(board.Left)
	settle(t, g)

	mu.Lock()
	defer mu.Unlock()
	is.Equal(len(seen), 1)
	is.Equal(seen[0].Moves, 1)
	is.Equal(seen[0].Board.Len(), 2)
}

func TestPacingFollowsAutoplay(t *testing.T) {
	is := is.New(t)
	s := DefaultSettings()
	s.Interval = 50 * time.Millisecond
	g := New(s, mechanics.NewSource(1), nil)
	defer g.Close()
	is.Equal(g.pace(), arbiter.DefaultSettle)
	g.SetAutoplay(true)
	is.Equal(g.pace(), time.Duration(0))
	g.UpdateSettings(func(s *Settings) { s.Interval = time.Second })
	is.Equal(g.pace(), arbiter.DefaultSettle)
}
