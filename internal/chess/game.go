package chess

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMove   = errors.New("invalid move")
	ErrGameConcluded = errors.New("game concluded")
)

// Game is the rules state of one game. It is not safe for concurrent use;
// callers serialize access.
type Game struct {
	board Board
	side  Color
	ply   int
	over  bool
}

// NewGame returns the standard starting position with White to move.
func NewGame() *Game {
	g := &Game{side: White}
	g.board.Reset()
	return g
}

// NewGameFromBoard starts play from an arbitrary position.
func NewGameFromBoard(b *Board, side Color, ply int) *Game {
	g := &Game{side: side, ply: ply}
	if b != nil {
		g.board = *b
	}
	if g.side != Black {
		g.side = White
	}
	return g
}

func (g *Game) Board() *Board { return g.board.Clone() }

// Turn is the color to move, or NoColor once the game is concluded.
func (g *Game) Turn() Color {
	if g.over {
		return NoColor
	}
	return g.side
}

// SideToMove is the color whose move it is or would have been at conclusion.
func (g *Game) SideToMove() Color { return g.side }

func (g *Game) Ply() int        { return g.ply }
func (g *Game) Concluded() bool { return g.over }

func (g *Game) Clone() *Game {
	c := *g
	return &c
}

// Conclude ends the game; every later MakeMove fails.
func (g *Game) Conclude() { g.over = true }

// ValidMoves returns the legal moves of the piece on from. It is empty when
// the square is empty, the piece belongs to the side not on move, or the
// game is over.
func (g *Game) ValidMoves(from Position) []Move {
	if g.over {
		return nil
	}
	p, ok := g.board.Piece(from)
	if !ok || p.Color != g.side {
		return nil
	}
	return g.legalFrom(from)
}

// LegalMoves returns every legal move for the side to move, a1 pieces first.
func (g *Game) LegalMoves() []Move {
	if g.over {
		return nil
	}
	var out []Move
	for _, from := range g.board.Occupied(g.side) {
		out = append(out, g.legalFrom(from)...)
	}
	return out
}

func (g *Game) MakeMove(mv Move) error {
	if g.over {
		return ErrGameConcluded
	}
	if !mv.Start.Valid() || !mv.End.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidMove, ErrOutOfBounds)
	}
	if !containsMove(g.ValidMoves(mv.Start), mv) {
		return fmt.Errorf("%w: %s", ErrInvalidMove, mv)
	}
	b := g.playBoard()
	apply(&b, mv, g.ply)
	g.board = b
	g.ply++
	g.side = g.side.Opponent()
	if !g.hasAnyMove(g.side) {
		g.over = true
	}
	return nil
}

func (g *Game) IsInCheck(c Color) bool {
	king, ok := g.board.KingPosition(c)
	if !ok {
		return false
	}
	return attacked(&g.board, king, c.Opponent())
}

func (g *Game) IsInCheckmate(c Color) bool {
	return g.IsInCheck(c) && !g.hasAnyMove(c)
}

func (g *Game) IsInStalemate(c Color) bool {
	return c == g.side && !g.IsInCheck(c) && !g.hasAnyMove(c)
}

// playBoard is the board with any en-passant record dropped once its
// one-ply window has passed.
func (g *Game) playBoard() Board {
	b := g.board
	if ep, ok := b.EnPassant(); ok && ep.Ply+1 != g.ply {
		b.ClearEnPassant()
	}
	return b
}

func (g *Game) hasAnyMove(c Color) bool {
	for _, from := range g.board.Occupied(c) {
		if len(g.legalFrom(from)) > 0 {
			return true
		}
	}
	return false
}

// legalFrom filters the pseudo-legal moves of the piece on from by playing
// each one on a copy of the board and rejecting those that leave the
// mover's king attacked.
func (g *Game) legalFrom(from Position) []Move {
	b := g.playBoard()
	p, ok := b.Piece(from)
	if !ok {
		return nil
	}
	cands := PieceMoves(&b, from)
	out := make([]Move, 0, len(cands))
	for _, mv := range cands {
		if isCastle(p, mv) && !castleSafe(&b, mv, p.Color) {
			continue
		}
		sim := b
		apply(&sim, mv, g.ply)
		if king, ok := sim.KingPosition(p.Color); ok && attacked(&sim, king, p.Color.Opponent()) {
			continue
		}
		out = append(out, mv)
	}
	return out
}

func isCastle(p Piece, mv Move) bool {
	return p.Kind == King && abs(mv.End.Col-mv.Start.Col) == 2
}

// castleSafe requires the king's current, transit and landing squares to be
// free of attack.
func castleSafe(b *Board, mv Move, c Color) bool {
	dir := 1
	if mv.End.Col < mv.Start.Col {
		dir = -1
	}
	for col := mv.Start.Col; col != mv.End.Col+dir; col += dir {
		if attacked(b, Position{Row: mv.Start.Row, Col: col}, c.Opponent()) {
			return false
		}
	}
	return true
}

// apply executes mv on b without any legality checks. ply is the ply the
// move is played at and stamps a new en-passant record.
func apply(b *Board, mv Move, ply int) {
	p, ok := b.RemovePiece(mv.Start)
	if !ok {
		return
	}
	if p.Kind == Pawn && mv.Start.Col != mv.End.Col {
		if _, occupied := b.Piece(mv.End); !occupied && enPassantCapture(b, mv.Start, mv.End, p) {
			ep, _ := b.EnPassant()
			b.RemovePiece(ep.Pawn)
		}
	}
	if isCastle(p, mv) {
		rookFrom := Position{Row: mv.Start.Row, Col: 8}
		rookTo := Position{Row: mv.Start.Row, Col: 6}
		if mv.End.Col < mv.Start.Col {
			rookFrom.Col, rookTo.Col = 1, 4
		}
		if r, ok := b.RemovePiece(rookFrom); ok {
			r.Moved = true
			b.AddPiece(rookTo, r)
		}
	}
	p.Moved = true
	if p.Kind == Pawn && mv.Promotion != "" {
		p = Piece{Kind: mv.Promotion, Color: p.Color, Moved: true}
	}
	b.AddPiece(mv.End, p)

	b.ClearEnPassant()
	if p.Kind == Pawn && abs(mv.End.Row-mv.Start.Row) == 2 {
		b.SetEnPassant(EnPassant{
			Target: Position{Row: (mv.Start.Row + mv.End.Row) / 2, Col: mv.Start.Col},
			Pawn:   mv.End,
			Ply:    ply,
		})
	}
}

func containsMove(moves []Move, mv Move) bool {
	for _, m := range moves {
		if m == mv {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
