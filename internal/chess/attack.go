package chess

// attacked reports whether any piece of color by attacks sq. Only capture
// patterns count: pawn diagonals and single king steps, never castling.
func attacked(b *Board, sq Position, by Color) bool {
	// a pawn of color by attacks sq from one row behind it
	for _, dc := range []int{-1, 1} {
		if from, ok := sq.offset(-by.forward(), dc); ok {
			if p, occupied := b.Piece(from); occupied && p.Color == by && p.Kind == Pawn {
				return true
			}
		}
	}
	if hitBy(b, sq, by, knightHops, Knight) || hitBy(b, sq, by, kingSteps, King) {
		return true
	}
	return rayHit(b, sq, by, rookDirs, Rook) || rayHit(b, sq, by, bishopDirs, Bishop)
}

func hitBy(b *Board, sq Position, by Color, offsets [][2]int, k Kind) bool {
	for _, d := range offsets {
		from, ok := sq.offset(d[0], d[1])
		if !ok {
			continue
		}
		if p, occupied := b.Piece(from); occupied && p.Color == by && p.Kind == k {
			return true
		}
	}
	return false
}

// rayHit walks each direction to the first occupied square and checks for
// a slider of kind k or a queen.
func rayHit(b *Board, sq Position, by Color, dirs [][2]int, k Kind) bool {
	for _, d := range dirs {
		from, ok := sq.offset(d[0], d[1])
		for ok {
			if p, occupied := b.Piece(from); occupied {
				if p.Color == by && (p.Kind == k || p.Kind == Queen) {
					return true
				}
				break
			}
			from, ok = from.offset(d[0], d[1])
		}
	}
	return false
}
