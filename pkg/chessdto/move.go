package chessdto

// Position is a board square on the wire. Row 1 is White's back rank.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Move is the payload of MAKE_MOVE. Promotion is a piece kind
// (QUEEN, ROOK, BISHOP, KNIGHT) and only set when a pawn reaches the last rank.
type Move struct {
	Start     Position `json:"start"`
	End       Position `json:"end"`
	Promotion string   `json:"promotion,omitempty"`
}
