package chess

import (
	"fmt"
	"strings"
)

type Kind string

const (
	Pawn   Kind = "PAWN"
	Knight Kind = "KNIGHT"
	Bishop Kind = "BISHOP"
	Rook   Kind = "ROOK"
	Queen  Kind = "QUEEN"
	King   Kind = "KING"
)

// promotionKinds lists promotion choices in the order they are generated.
var promotionKinds = [...]Kind{Queen, Rook, Bishop, Knight}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case Pawn, Knight, Bishop, Rook, Queen, King:
		return k, nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "p":
		return Pawn, nil
	case "n":
		return Knight, nil
	case "b":
		return Bishop, nil
	case "r":
		return Rook, nil
	case "q":
		return Queen, nil
	case "k":
		return King, nil
	}
	return "", fmt.Errorf("unknown piece kind %q", s)
}

// Letter returns the lower-case UCI/FEN letter for the kind.
func (k Kind) Letter() string {
	switch k {
	case Pawn:
		return "p"
	case Knight:
		return "n"
	case Bishop:
		return "b"
	case Rook:
		return "r"
	case Queen:
		return "q"
	case King:
		return "k"
	default:
		return ""
	}
}

// Color is a side. NoColor marks a concluded game where nobody is to move.
type Color string

const (
	White   Color = "WHITE"
	Black   Color = "BLACK"
	NoColor Color = ""
)

func ParseColor(s string) (Color, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WHITE", "W":
		return White, nil
	case "BLACK", "B":
		return Black, nil
	}
	return NoColor, fmt.Errorf("unknown color %q", s)
}

func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// forward is the row direction pawns of this color advance in.
func (c Color) forward() int {
	if c == Black {
		return -1
	}
	return 1
}

func (c Color) homeRow() int {
	if c == Black {
		return 8
	}
	return 1
}

type Piece struct {
	Kind  Kind  `json:"kind"`
	Color Color `json:"color"`
	Moved bool  `json:"moved"`
}

func (p Piece) IsZero() bool { return p.Kind == "" }

func (p Piece) String() string {
	if p.IsZero() {
		return "."
	}
	if p.Color == White {
		return strings.ToUpper(p.Kind.Letter())
	}
	return p.Kind.Letter()
}

// Move is a from/to pair with an optional promotion kind.
type Move struct {
	Start     Position `json:"start"`
	End       Position `json:"end"`
	Promotion Kind     `json:"promotion,omitempty"`
}

// String renders the move in UCI long algebraic form (e2e4, e7e8q).
func (m Move) String() string {
	return m.Start.String() + m.End.String() + m.Promotion.Letter()
}

// ParseUCI parses long algebraic moves such as "e2e4" or "a7a8q".
func ParseUCI(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	from, err := ParseSquare(s[:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, err
	}
	mv := Move{Start: from, End: to}
	if len(s) == 5 {
		k, err := ParseKind(s[4:])
		if err != nil {
			return Move{}, fmt.Errorf("%w: %v", ErrInvalidMove, err)
		}
		mv.Promotion = k
	}
	return mv, nil
}
