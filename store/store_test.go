package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/tilecraft/slide/game"
	"github.com/tilecraft/slide/mechanics"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	clock := time.Unix(1700000000, 0)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestPersonalBest(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openTestStore(t)

	best, err := s.PersonalBest(ctx, "alice")
	is.NoErr(err)
	is.Equal(best, 0)

	for _, score := range []int{1200, 5400, 3100} {
		is.NoErr(s.SubmitResult(ctx, game.Result{Identity: "alice", Score: score, MaxTile: 256, Moves: 300}))
	}
	is.NoErr(s.SubmitResult(ctx, game.Result{Identity: "bob", Score: 9000}))

	best, err = s.PersonalBest(ctx, "alice")
	is.NoErr(err)
	is.Equal(best, 5400)

	best, err = s.PersonalBest(ctx, "")
	is.NoErr(err)
	is.Equal(best, 0)
}

func TestAnonymousResultsAreNotStored(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openTestStore(t)

	err := s.SubmitResult(ctx, game.Result{Score: 100})
	is.True(errors.Is(err, game.ErrAnonymous))
	entries, err := s.Leaderboard(ctx, 0)
	is.NoErr(err)
	is.Equal(len(entries), 0)
}

func TestLeaderboard(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openTestStore(t)

	is.NoErr(s.SubmitResult(ctx, game.Result{Identity: "a", Score: 100, Algorithm: "ignored"}))
	is.NoErr(s.SubmitResult(ctx, game.Result{Identity: "b", Score: 300, MaxTile: 32,
		Moves: 40, Autonomous: true, Algorithm: "Expectimax (Default)"}))
	is.NoErr(s.SubmitResult(ctx, game.Result{Identity: "c", Score: 300}))
	for i := 0; i < DefaultLeaderboardSize; i++ {
		is.NoErr(s.SubmitResult(ctx, game.Result{Identity: "d", Score: 10}))
	}

	entries, err := s.Leaderboard(ctx, 0)
	is.NoErr(err)
	is.Equal(len(entries), DefaultLeaderboardSize)

	// equal scores keep submission order.
	is.Equal(entries[0].Identity, "b")
	is.Equal(entries[0].Result, game.Result{Identity: "b", Score: 300, MaxTile: 32,
		Moves: 40, Autonomous: true, Algorithm: "Expectimax (Default)"})
	is.Equal(entries[1].Identity, "c")
	is.Equal(entries[1].Algorithm, game.HumanLabel)
	is.Equal(entries[2].Algorithm, game.HumanLabel)
	is.True(entries[0].CreatedAt.Before(entries[1].CreatedAt))
	is.True(entries[0].ID != entries[1].ID)

	top, err := s.Leaderboard(ctx, 2)
	is.NoErr(err)
	is.Equal(len(top), 2)
}

func TestGameRecordsThroughStore(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := openTestStore(t)
	is.NoErr(s.SubmitResult(ctx, game.Result{Identity: "alice", Score: 777}))

	settings := game.DefaultSettings()
	settings.Identity = "alice"
	g := game.New(settings, mechanics.NewSource(1), s)
	defer g.Close()
	g.NewGame(ctx)
	is.Equal(g.Snapshot().Best, 777)
}
