package chess

// Generators return pseudo-legal moves: movement patterns, blocking and
// captures are honoured; exposure of the mover's own king is not checked.

type generator func(b *Board, from Position, p Piece) []Move

var generators = map[Kind]generator{
	Pawn:   pawnMoves,
	Knight: knightMoves,
	Bishop: bishopMoves,
	Rook:   rookMoves,
	Queen:  queenMoves,
	King:   kingMoves,
}

var (
	rookDirs   = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	queenDirs  = append(append([][2]int{}, rookDirs...), bishopDirs...)
	knightHops = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps  = queenDirs
)

// PieceMoves dispatches to the generator for whatever piece stands on from.
func PieceMoves(b *Board, from Position) []Move {
	p, ok := b.Piece(from)
	if !ok {
		return nil
	}
	gen, ok := generators[p.Kind]
	if !ok {
		return nil
	}
	return gen(b, from, p)
}

func PawnMoves(b *Board, from Position) []Move   { return movesOf(b, from, Pawn) }
func KnightMoves(b *Board, from Position) []Move { return movesOf(b, from, Knight) }
func BishopMoves(b *Board, from Position) []Move { return movesOf(b, from, Bishop) }
func RookMoves(b *Board, from Position) []Move   { return movesOf(b, from, Rook) }
func QueenMoves(b *Board, from Position) []Move  { return movesOf(b, from, Queen) }
func KingMoves(b *Board, from Position) []Move   { return movesOf(b, from, King) }

func movesOf(b *Board, from Position, k Kind) []Move {
	p, ok := b.Piece(from)
	if !ok || p.Kind != k {
		return nil
	}
	return generators[k](b, from, p)
}

func slide(b *Board, from Position, p Piece, dirs [][2]int) []Move {
	var out []Move
	for _, d := range dirs {
		to, ok := from.offset(d[0], d[1])
		for ok {
			q, occupied := b.Piece(to)
			if occupied {
				if q.Color != p.Color {
					out = append(out, Move{Start: from, End: to})
				}
				break
			}
			out = append(out, Move{Start: from, End: to})
			to, ok = to.offset(d[0], d[1])
		}
	}
	return out
}

func step(b *Board, from Position, p Piece, offsets [][2]int) []Move {
	var out []Move
	for _, d := range offsets {
		to, ok := from.offset(d[0], d[1])
		if !ok {
			continue
		}
		if q, occupied := b.Piece(to); occupied && q.Color == p.Color {
			continue
		}
		out = append(out, Move{Start: from, End: to})
	}
	return out
}

func knightMoves(b *Board, from Position, p Piece) []Move { return step(b, from, p, knightHops) }
func bishopMoves(b *Board, from Position, p Piece) []Move { return slide(b, from, p, bishopDirs) }
func rookMoves(b *Board, from Position, p Piece) []Move   { return slide(b, from, p, rookDirs) }
func queenMoves(b *Board, from Position, p Piece) []Move  { return slide(b, from, p, queenDirs) }

func kingMoves(b *Board, from Position, p Piece) []Move {
	return append(step(b, from, p, kingSteps), castlingCandidates(b, from, p)...)
}

// castlingCandidates checks the structural conditions only: unmoved king on
// its home square, unmoved rook in the corner, nothing in between. Whether
// the king crosses attacked squares is left to the rules engine.
func castlingCandidates(b *Board, from Position, p Piece) []Move {
	row := p.Color.homeRow()
	if p.Moved || from != (Position{Row: row, Col: 5}) {
		return nil
	}
	var out []Move
	sides := []struct {
		rookCol int
		between []int
		kingTo  int
	}{
		{rookCol: 8, between: []int{6, 7}, kingTo: 7},
		{rookCol: 1, between: []int{2, 3, 4}, kingTo: 3},
	}
	for _, s := range sides {
		r, ok := b.Piece(Position{Row: row, Col: s.rookCol})
		if !ok || r.Kind != Rook || r.Color != p.Color || r.Moved {
			continue
		}
		empty := true
		for _, col := range s.between {
			if _, occupied := b.Piece(Position{Row: row, Col: col}); occupied {
				empty = false
				break
			}
		}
		if empty {
			out = append(out, Move{Start: from, End: Position{Row: row, Col: s.kingTo}})
		}
	}
	return out
}

func pawnMoves(b *Board, from Position, p Piece) []Move {
	var out []Move
	dir := p.Color.forward()
	startRow := 2
	lastRow := 8
	if p.Color == Black {
		startRow, lastRow = 7, 1
	}

	add := func(to Position) {
		if to.Row != lastRow {
			out = append(out, Move{Start: from, End: to})
			return
		}
		for _, k := range promotionKinds {
			out = append(out, Move{Start: from, End: to, Promotion: k})
		}
	}

	if one, ok := from.offset(dir, 0); ok {
		if _, occupied := b.Piece(one); !occupied {
			add(one)
			if from.Row == startRow {
				if two, ok := from.offset(2*dir, 0); ok {
					if _, occupied := b.Piece(two); !occupied {
						add(two)
					}
				}
			}
		}
	}

	for _, dc := range []int{-1, 1} {
		to, ok := from.offset(dir, dc)
		if !ok {
			continue
		}
		if q, occupied := b.Piece(to); occupied {
			if q.Color != p.Color {
				add(to)
			}
			continue
		}
		if enPassantCapture(b, from, to, p) {
			out = append(out, Move{Start: from, End: to})
		}
	}
	return out
}

// enPassantCapture reports whether moving a pawn from -> to (an empty
// diagonal) captures the pawn recorded in the board's en-passant state.
func enPassantCapture(b *Board, from, to Position, p Piece) bool {
	ep, ok := b.EnPassant()
	if !ok || ep.Target != to {
		return false
	}
	if ep.Pawn != (Position{Row: from.Row, Col: to.Col}) {
		return false
	}
	victim, ok := b.Piece(ep.Pawn)
	return ok && victim.Kind == Pawn && victim.Color != p.Color
}
