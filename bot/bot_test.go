package bot

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/nats-io/nats.go"

	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/heuristic"
	"github.com/tilecraft/slide/search"
)

var onlyLeft = [][]int{
	{0, 2, 4, 8},
	{0, 4, 8, 16},
	{0, 8, 16, 32},
	{0, 16, 32, 64},
}

func TestDecode(t *testing.T) {
	is := is.New(t)
	req, err := MoveRequest{
		Board:     onlyLeft,
		Algorithm: "Minimax (Classic)",
		Weights:   map[string]float64{"monotonic": 1, "smoothness": 0.1, "free_tiles": 10, "merges": 1},
	}.Decode()
	is.NoErr(err)
	is.Equal(req.Depth, search.DefaultDepth)
	is.Equal(req.Algorithm, search.Minimax)
	is.Equal(req.Weights, heuristic.Weights{Empty: 10, Smooth: 0.1, Mono: 1, Max: 1})
	is.Equal(req.Grid[3][3], 64)

	_, err = MoveRequest{Board: [][]int{{2, 2}}}.Decode()
	is.True(errors.Is(err, board.ErrBadDimensions))

	bad := [][]int{{3, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	_, err = MoveRequest{Board: bad}.Decode()
	is.True(errors.Is(err, board.ErrBadTileValue))

	_, err = MoveRequest{Board: onlyLeft, Depth: MaxDepth + 1}.Decode()
	is.Equal(err, ErrDepthTooLarge)
}

func TestRequestRoundTrip(t *testing.T) {
	is := is.New(t)
	in := search.Request{
		Grid:      board.Grid{{2, 4}, {8}},
		Depth:     2,
		Algorithm: search.Expectimax,
		Weights:   heuristic.DefaultWeights,
	}
	out, err := NewMoveRequest(in).Decode()
	is.NoErr(err)
	is.Equal(out, in)
}

func TestHandle(t *testing.T) {
	is := is.New(t)
	b := NewBot(search.NewLocal(search.Options{Seed: 1}), time.Second)

	body, _ := json.Marshal(MoveRequest{Board: onlyLeft, Depth: 2})
	resp := b.Handle(context.Background(), body)
	is.Equal(resp, MoveResponse{Move: int(board.Left), Engine: Engine})

	stuck := [][]int{{2, 4, 2, 4}, {4, 2, 4, 2}, {2, 4, 2, 4}, {4, 2, 4, 2}}
	body, _ = json.Marshal(MoveRequest{Board: stuck})
	resp = b.Handle(context.Background(), body)
	is.Equal(resp.Move, -1)
	is.Equal(resp.Error, "")

	resp = b.Handle(context.Background(), []byte("{not json"))
	is.Equal(resp.Move, -1)
	is.True(resp.Error != "")

	body, _ = json.Marshal(MoveRequest{Board: [][]int{{-2}}})
	resp = b.Handle(context.Background(), body)
	is.Equal(resp.Move, -1)
	is.True(resp.Error != "")

	// tiles past 2^17 are rejected before any search runs.
	huge := [][]int{{262144, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 2}}
	body, _ = json.Marshal(MoveRequest{Board: huge, Depth: 2})
	resp = b.Handle(context.Background(), body)
	is.Equal(resp.Move, -1)
	is.True(strings.Contains(resp.Error, "131072"))

	top := [][]int{{131072, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 2}}
	body, _ = json.Marshal(MoveRequest{Board: top, Depth: 2})
	resp = b.Handle(context.Background(), body)
	is.Equal(resp.Error, "")
	is.True(resp.Move != -1)
}

func TestResponseDirection(t *testing.T) {
	is := is.New(t)
	d, err := MoveResponse{Move: 3}.Direction()
	is.NoErr(err)
	is.Equal(d, board.Down)

	d, err = MoveResponse{Move: -1}.Direction()
	is.NoErr(err)
	is.Equal(d, board.NoDirection)

	_, err = MoveResponse{Move: 9}.Direction()
	is.True(errors.Is(err, board.ErrBadDirection))

	_, err = MoveResponse{Move: -1, Error: "boom"}.Direction()
	is.True(err != nil)
}

// flakyConn fails the first `failures` requests, then hands the body to a
// bot in-process.
type flakyConn struct {
	bot      *Bot
	failures int
	calls    int
	subject  string
}

func (f *flakyConn) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	f.calls++
	f.subject = subj
	if f.calls <= f.failures {
		return nil, nats.ErrTimeout
	}
	out, err := json.Marshal(f.bot.Handle(ctx, data))
	if err != nil {
		return nil, err
	}
	return &nats.Msg{Subject: subj, Data: out}, nil
}

func TestClientRetries(t *testing.T) {
	is := is.New(t)
	conn := &flakyConn{bot: NewBot(search.NewLocal(search.Options{Seed: 2}), 0), failures: 2}
	c := NewClient(conn, "", time.Second, 3)
	grid, err := board.GridFromWire(onlyLeft)
	is.NoErr(err)

	d, err := c.RequestMove(context.Background(), search.Request{Grid: grid, Depth: 1})
	is.NoErr(err)
	is.Equal(d, board.Left)
	is.Equal(conn.calls, 3)
	is.Equal(conn.subject, DefaultSubject)
}

func TestClientGivesUp(t *testing.T) {
	is := is.New(t)
	conn := &flakyConn{failures: 10}
	c := NewClient(conn, "custom.subject", time.Second, 2)
	_, err := c.RequestMove(context.Background(), search.Request{Depth: 1})
	is.True(errors.Is(err, nats.ErrTimeout))
	is.Equal(conn.calls, 2)
	is.Equal(conn.subject, "custom.subject")
}

type failingSearcher struct{}

func (failingSearcher) RequestMove(context.Context, search.Request) (board.Direction, error) {
	return board.NoDirection, errors.New("out of budget")
}

func TestClientSurfacesBotError(t *testing.T) {
	is := is.New(t)
	conn := &flakyConn{bot: NewBot(failingSearcher{}, 0)}
	c := NewClient(conn, "", 0, 0)
	_, err := c.RequestMove(context.Background(), search.Request{Depth: 1})
	is.True(err != nil)
	// a reply, even an error reply, is not retried.
	is.Equal(conn.calls, 1)
}
