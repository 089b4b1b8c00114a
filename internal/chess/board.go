package chess

import "strings"

// EnPassant records the square a pawn skipped over on a two-square advance.
// Ply is the ply at which that advance was played; the capture is only
// available on the following ply.
type EnPassant struct {
	Target Position `json:"target"`
	Pawn   Position `json:"pawn"`
	Ply    int      `json:"ply"`
}

// Board is a value type; copying a Board copies the whole position.
// AddPiece and RemovePiece are plain bookkeeping and never touch the
// en-passant record, which only the rules engine maintains.
type Board struct {
	cells [64]Piece
	ep    EnPassant
	hasEP bool
}

func NewBoard() *Board {
	b := &Board{}
	b.Reset()
	return b
}

func (b *Board) Piece(pos Position) (Piece, bool) {
	if !pos.Valid() {
		return Piece{}, false
	}
	p := b.cells[pos.index()]
	return p, !p.IsZero()
}

func (b *Board) AddPiece(pos Position, p Piece) {
	if !pos.Valid() {
		return
	}
	b.cells[pos.index()] = p
}

// RemovePiece empties the square and returns whatever stood there.
func (b *Board) RemovePiece(pos Position) (Piece, bool) {
	if !pos.Valid() {
		return Piece{}, false
	}
	p := b.cells[pos.index()]
	b.cells[pos.index()] = Piece{}
	return p, !p.IsZero()
}

func (b *Board) Clear() {
	*b = Board{}
}

var backRank = [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Reset puts the standard starting layout on the board.
func (b *Board) Reset() {
	b.Clear()
	for col := 1; col <= 8; col++ {
		b.AddPiece(Position{Row: 1, Col: col}, Piece{Kind: backRank[col-1], Color: White})
		b.AddPiece(Position{Row: 2, Col: col}, Piece{Kind: Pawn, Color: White})
		b.AddPiece(Position{Row: 7, Col: col}, Piece{Kind: Pawn, Color: Black})
		b.AddPiece(Position{Row: 8, Col: col}, Piece{Kind: backRank[col-1], Color: Black})
	}
}

func (b *Board) Clone() *Board {
	c := *b
	return &c
}

func (b *Board) EnPassant() (EnPassant, bool) { return b.ep, b.hasEP }

func (b *Board) SetEnPassant(ep EnPassant) {
	b.ep = ep
	b.hasEP = true
}

func (b *Board) ClearEnPassant() {
	b.ep = EnPassant{}
	b.hasEP = false
}

// Occupied returns every square holding a piece of color c, a1 first.
func (b *Board) Occupied(c Color) []Position {
	out := make([]Position, 0, 16)
	for i, p := range b.cells {
		if !p.IsZero() && p.Color == c {
			out = append(out, positionAt(i))
		}
	}
	return out
}

func (b *Board) KingPosition(c Color) (Position, bool) {
	for i, p := range b.cells {
		if p.Kind == King && p.Color == c {
			return positionAt(i), true
		}
	}
	return Position{}, false
}

// Equal compares pieces, moved flags and en-passant state.
func (b *Board) Equal(o *Board) bool {
	if b == nil || o == nil {
		return b == o
	}
	return *b == *o
}

// String draws the board rank 8 first, for logs and test failures.
func (b *Board) String() string {
	var sb strings.Builder
	for row := 8; row >= 1; row-- {
		for col := 1; col <= 8; col++ {
			p, _ := b.Piece(Position{Row: row, Col: col})
			sb.WriteString(p.String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
