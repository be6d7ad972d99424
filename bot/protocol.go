package bot

import (
	"errors"
	"fmt"

	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/heuristic"
	"github.com/tilecraft/slide/search"
)

const (
	DefaultSubject = "tiles.bot"
	// MaxDepth bounds what a remote caller may ask for.
	MaxDepth = 8
	Engine   = "go"
)

var ErrDepthTooLarge = fmt.Errorf("depth must be at most %d", MaxDepth)

// MoveRequest is the wire form of an autonomous-move request.
type MoveRequest struct {
	Board     [][]int            `json:"board"`
	Depth     int                `json:"depth,omitempty"`
	Algorithm string             `json:"algorithm,omitempty"`
	Weights   map[string]float64 `json:"weights,omitempty"`
}

// MoveResponse carries a direction code, or -1 when there is no legal move
// or the request failed.
type MoveResponse struct {
	Move   int    `json:"move"`
	Engine string `json:"engine,omitempty"`
	Error  string `json:"error,omitempty"`
}

func NewMoveRequest(req search.Request) MoveRequest {
	return MoveRequest{
		Board:     req.Grid.Wire(),
		Depth:     req.Depth,
		Algorithm: string(req.Algorithm),
		Weights:   req.Weights.Wire(),
	}
}

// Decode validates the request and converts it. A missing depth means the
// default; missing weights keep their defaults.
func (m MoveRequest) Decode() (search.Request, error) {
	g, err := board.GridFromWire(m.Board)
	if err != nil {
		return search.Request{}, err
	}
	depth := m.Depth
	if depth <= 0 {
		depth = search.DefaultDepth
	}
	if depth > MaxDepth {
		return search.Request{}, ErrDepthTooLarge
	}
	return search.Request{
		Grid:      g,
		Depth:     depth,
		Algorithm: search.ParseAlgorithm(m.Algorithm),
		Weights:   heuristic.FromWire(m.Weights),
	}, nil
}

// Direction interprets the response. A -1 move is board.NoDirection.
func (r MoveResponse) Direction() (board.Direction, error) {
	if r.Error != "" {
		return board.NoDirection, errors.New("bot returned: " + r.Error)
	}
	if r.Move == int(board.NoDirection) {
		return board.NoDirection, nil
	}
	return board.DirectionFromCode(r.Move)
}

func errorResponse(message string, err error) MoveResponse {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Error())
	}
	return MoveResponse{Move: int(board.NoDirection), Engine: Engine, Error: msg}
}
