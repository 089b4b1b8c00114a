package chess

type Status string

const (
	StatusOngoing   Status = "ONGOING"
	StatusCheck     Status = "CHECK"
	StatusCheckmate Status = "CHECKMATE"
	StatusStalemate Status = "STALEMATE"
	StatusConcluded Status = "CONCLUDED"
)

// Status summarises the position from the point of view of the side to move.
// StatusConcluded covers games ended without mate or stalemate (resignation).
func (g *Game) Status() Status {
	side := g.side
	inCheck := g.IsInCheck(side)
	if !g.hasAnyMove(side) {
		if inCheck {
			return StatusCheckmate
		}
		return StatusStalemate
	}
	if g.over {
		return StatusConcluded
	}
	if inCheck {
		return StatusCheck
	}
	return StatusOngoing
}

// Winner returns the side that delivered mate, or NoColor.
func (g *Game) Winner() Color {
	if g.IsInCheckmate(g.side) {
		return g.side.Opponent()
	}
	return NoColor
}
