package chessdto

type PieceEntry struct {
	Position Position `json:"position"`
	Kind     string   `json:"kind"`
	Color    string   `json:"color"`
	Moved    bool     `json:"moved"`
}

type EnPassant struct {
	Target Position `json:"target"`
	Pawn   Position `json:"pawn"`
	Ply    int      `json:"ply"`
}

// Board lists occupied squares in a1..h8 order.
type Board struct {
	Pieces    []PieceEntry `json:"pieces"`
	EnPassant *EnPassant   `json:"enPassant,omitempty"`
}

// GameState is the serialized rules state. Turn is null once the game is
// concluded; SideToMove keeps the side that would have moved next.
type GameState struct {
	Board      Board   `json:"board"`
	Turn       *string `json:"turn"`
	SideToMove string  `json:"sideToMove"`
	Ply        int     `json:"ply"`
}

// GameView is the LOAD_GAME payload.
type GameView struct {
	GameID        string    `json:"gameID"`
	GameName      string    `json:"gameName,omitempty"`
	WhiteUsername string    `json:"whiteUsername,omitempty"`
	BlackUsername string    `json:"blackUsername,omitempty"`
	State         GameState `json:"state"`
	Status        string    `json:"status"`
	MovesSAN      []string  `json:"movesSAN,omitempty"`
	Opening       string    `json:"opening,omitempty"`
	Result        *Result   `json:"result,omitempty"`
}
