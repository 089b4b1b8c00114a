package chess

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOutOfBounds is returned when a row or column falls outside 1..8.
var ErrOutOfBounds = errors.New("position out of bounds")

// Position is a board square. Row 1 is White's back rank, column 1 is the a-file.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func NewPosition(row, col int) (Position, error) {
	p := Position{Row: row, Col: col}
	if !p.Valid() {
		return Position{}, fmt.Errorf("%w: row=%d col=%d", ErrOutOfBounds, row, col)
	}
	return p, nil
}

// ParseSquare converts algebraic coordinates such as "e4".
func ParseSquare(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Position{}, fmt.Errorf("%w: %q", ErrOutOfBounds, s)
	}
	return NewPosition(int(s[1]-'0'), int(s[0]-'a')+1)
}

// Sq is ParseSquare for literals known to be valid. It panics otherwise.
func Sq(s string) Position {
	p, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Position) Valid() bool {
	return p.Row >= 1 && p.Row <= 8 && p.Col >= 1 && p.Col <= 8
}

func (p Position) String() string {
	if !p.Valid() {
		return "??"
	}
	return string(rune('a'+p.Col-1)) + string(rune('0'+p.Row))
}

func (p Position) index() int { return (p.Row-1)*8 + (p.Col - 1) }

func (p Position) offset(dr, dc int) (Position, bool) {
	n := Position{Row: p.Row + dr, Col: p.Col + dc}
	return n, n.Valid()
}

func positionAt(idx int) Position { return Position{Row: idx/8 + 1, Col: idx%8 + 1} }
