package board

import (
	"fmt"
	"strings"
)

// Direction is a player command. The integer values double as the wire
// codes exchanged with a remote search service.
type Direction int

const (
	NoDirection Direction = -1

	Left Direction = iota - 1
	Right
	Up
	Down
)

// Directions lists every direction in the order the search tries them.
var Directions = [4]Direction{Left, Right, Up, Down}

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "none"
}

// Valid is true for the four real directions.
func (d Direction) Valid() bool {
	return d >= Left && d <= Down
}

// Vector returns the unit step (row, column) for the direction.
func (d Direction) Vector() (int, int) {
	switch d {
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	}
	return 0, 0
}

// ParseDirection accepts the direction names, their first letters, and the
// numeric wire codes.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l", "0":
		return Left, nil
	case "right", "r", "1":
		return Right, nil
	case "up", "u", "2":
		return Up, nil
	case "down", "d", "3":
		return Down, nil
	case "none", "-1":
		return NoDirection, nil
	}
	return NoDirection, fmt.Errorf("unknown direction %q", s)
}

// DirectionFromCode converts a wire code, rejecting anything out of range.
func DirectionFromCode(code int) (Direction, error) {
	d := Direction(code)
	if d == NoDirection || d.Valid() {
		return d, nil
	}
	return NoDirection, fmt.Errorf("%w: %d", ErrBadDirection, code)
}
