package chess

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/park285/chess-live-server/pkg/chessdto"
)

func play(t *testing.T, g *Game, moves ...string) {
	t.Helper()
	for _, s := range moves {
		mv, err := ParseUCI(s)
		if err != nil {
			t.Fatalf("ParseUCI(%q): %v", s, err)
		}
		if err := g.MakeMove(mv); err != nil {
			t.Fatalf("MakeMove(%s): %v\n%s", s, err, g.Board())
		}
	}
}

func hasMove(moves []Move, s string) bool {
	for _, m := range moves {
		if m.String() == s {
			return true
		}
	}
	return false
}

func boardWith(pieces map[string]Piece) *Board {
	b := &Board{}
	for sq, p := range pieces {
		b.AddPiece(Sq(sq), p)
	}
	return b
}

func TestFoolsMate(t *testing.T) {
	g := NewGame()
	play(t, g, "f2f3", "e7e5", "g2g4", "d8h4")

	if !g.IsInCheckmate(White) {
		t.Fatalf("expected white to be checkmated\n%s", g.Board())
	}
	if g.IsInCheckmate(Black) {
		t.Fatalf("black is not mated")
	}
	if g.Turn() != NoColor || !g.Concluded() {
		t.Fatalf("expected concluded game, turn=%q", g.Turn())
	}
	if g.Status() != StatusCheckmate || g.Winner() != Black {
		t.Fatalf("status=%s winner=%s", g.Status(), g.Winner())
	}
	err := g.MakeMove(Move{Start: Sq("a2"), End: Sq("a3")})
	if !errors.Is(err, ErrGameConcluded) {
		t.Fatalf("expected ErrGameConcluded, got %v", err)
	}
}

func TestCheckmateAndStalemateIdempotent(t *testing.T) {
	g := NewGame()
	play(t, g, "f2f3", "e7e5", "g2g4", "d8h4")
	for i := 0; i < 3; i++ {
		if !g.IsInCheckmate(White) || g.IsInStalemate(White) {
			t.Fatalf("call %d changed the result", i)
		}
	}

	b := boardWith(map[string]Piece{
		"h1": {Kind: King, Color: White, Moved: true},
		"c5": {Kind: Queen, Color: White, Moved: true},
		"a8": {Kind: King, Color: Black, Moved: true},
	})
	s := NewGameFromBoard(b, White, 40)
	play(t, s, "c5b6")
	for i := 0; i < 3; i++ {
		if !s.IsInStalemate(Black) || s.IsInCheckmate(Black) {
			t.Fatalf("call %d: expected stalemate only", i)
		}
	}
	if s.Status() != StatusStalemate || s.Turn() != NoColor {
		t.Fatalf("status=%s turn=%q", s.Status(), s.Turn())
	}
}

func TestValidMovesRespectsTurn(t *testing.T) {
	g := NewGame()
	if got := g.ValidMoves(Sq("e7")); len(got) != 0 {
		t.Fatalf("black pawn should have no moves on white's turn, got %v", got)
	}
	if got := g.ValidMoves(Sq("e4")); len(got) != 0 {
		t.Fatalf("empty square returned %v", got)
	}
	if got := g.ValidMoves(Sq("g1")); len(got) != 2 {
		t.Fatalf("knight g1 expected 2 moves, got %v", got)
	}
	err := g.MakeMove(Move{Start: Sq("e2"), End: Sq("e5")})
	if !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove, got %v", err)
	}
	if g.Ply() != 0 || g.Turn() != White {
		t.Fatalf("rejected move mutated state")
	}
}

func TestCastlingBlockedByAttack(t *testing.T) {
	b := boardWith(map[string]Piece{
		"e1": {Kind: King, Color: White},
		"h1": {Kind: Rook, Color: White},
		"e8": {Kind: King, Color: Black},
		"f8": {Kind: Rook, Color: Black},
	})
	g := NewGameFromBoard(b, White, 0)
	moves := g.ValidMoves(Sq("e1"))
	if hasMove(moves, "e1g1") {
		t.Fatalf("castling through attacked f1 must be rejected: %v", moves)
	}
	if !hasMove(KingMoves(b, Sq("e1")), "e1g1") {
		t.Fatalf("generator should still offer the structural candidate")
	}

	b.RemovePiece(Sq("f8"))
	b.AddPiece(Sq("a8"), Piece{Kind: Rook, Color: Black})
	g = NewGameFromBoard(b, White, 0)
	if !hasMove(g.ValidMoves(Sq("e1")), "e1g1") {
		t.Fatalf("castling should be legal once f1 is safe")
	}
	play(t, g, "e1g1")
	after := g.Board()
	if r, ok := after.Piece(Sq("f1")); !ok || r.Kind != Rook || !r.Moved {
		t.Fatalf("rook not relocated to f1: %+v", r)
	}
	if _, ok := after.Piece(Sq("h1")); ok {
		t.Fatalf("h1 should be empty after castling")
	}
}

func TestCastlingNotAllowedOutOfCheckOrAfterRookMoved(t *testing.T) {
	b := boardWith(map[string]Piece{
		"e1": {Kind: King, Color: White},
		"a1": {Kind: Rook, Color: White},
		"h1": {Kind: Rook, Color: White, Moved: true},
		"e8": {Kind: King, Color: Black},
		"e5": {Kind: Rook, Color: Black},
	})
	g := NewGameFromBoard(b, White, 0)
	moves := g.ValidMoves(Sq("e1"))
	if hasMove(moves, "e1c1") || hasMove(moves, "e1g1") {
		t.Fatalf("no castling while in check or with a moved rook: %v", moves)
	}
	b.RemovePiece(Sq("e5"))
	g = NewGameFromBoard(b, White, 0)
	moves = g.ValidMoves(Sq("e1"))
	if !hasMove(moves, "e1c1") || hasMove(moves, "e1g1") {
		t.Fatalf("expected queen-side only: %v", moves)
	}
}

func TestEnPassantWindow(t *testing.T) {
	g := NewGame()
	play(t, g, "e2e4", "a7a6", "e4e5", "d7d5")
	if !hasMove(g.ValidMoves(Sq("e5")), "e5d6") {
		t.Fatalf("en passant should be available immediately")
	}
	c := g.Clone()
	play(t, c, "e5d6")
	if _, ok := c.Board().Piece(Sq("d5")); ok {
		t.Fatalf("captured pawn still on d5")
	}

	play(t, g, "h2h3", "a6a5")
	if hasMove(g.ValidMoves(Sq("e5")), "e5d6") {
		t.Fatalf("en passant must expire after one ply")
	}
}

func TestEnPassantIgnoresStaleRecord(t *testing.T) {
	b := boardWith(map[string]Piece{
		"e1": {Kind: King, Color: White},
		"e8": {Kind: King, Color: Black},
		"e5": {Kind: Pawn, Color: White, Moved: true},
		"d5": {Kind: Pawn, Color: Black, Moved: true},
	})
	b.SetEnPassant(EnPassant{Target: Sq("d6"), Pawn: Sq("d5"), Ply: 3})
	if hasMove(NewGameFromBoard(b, White, 10).ValidMoves(Sq("e5")), "e5d6") {
		t.Fatalf("record from ply 3 must not be usable at ply 10")
	}
	if !hasMove(NewGameFromBoard(b, White, 4).ValidMoves(Sq("e5")), "e5d6") {
		t.Fatalf("record from ply 3 should be usable at ply 4")
	}
}

func TestPromotion(t *testing.T) {
	b := boardWith(map[string]Piece{
		"a1": {Kind: King, Color: White},
		"h3": {Kind: King, Color: Black},
		"c7": {Kind: Pawn, Color: White, Moved: true},
	})
	g := NewGameFromBoard(b, White, 0)
	moves := g.ValidMoves(Sq("c7"))
	if len(moves) != 4 {
		t.Fatalf("expected four promotion choices, got %v", moves)
	}
	if err := g.MakeMove(Move{Start: Sq("c7"), End: Sq("c8")}); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("promotion kind is required, got %v", err)
	}
	play(t, g, "c7c8n")
	p, ok := g.Board().Piece(Sq("c8"))
	if !ok || p.Kind != Knight || p.Color != White {
		t.Fatalf("expected white knight on c8, got %+v", p)
	}
}

func perft(g *Game, depth int) int {
	if depth == 0 {
		return 1
	}
	n := 0
	for _, mv := range g.LegalMoves() {
		c := g.Clone()
		if err := c.MakeMove(mv); err != nil {
			panic(err)
		}
		n += perft(c, depth-1)
	}
	return n
}

func TestPerftStartPosition(t *testing.T) {
	want := []int{1, 20, 400, 8902}
	for depth, n := range want {
		if got := perft(NewGame(), depth); got != n {
			t.Fatalf("perft(%d) = %d, want %d", depth, got, n)
		}
	}
}

func TestRandomPlayoutsNeverLeaveKingInCheck(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for game := 0; game < 20; game++ {
		g := NewGame()
		for ply := 0; ply < 120 && !g.Concluded(); ply++ {
			mover := g.Turn()
			moves := g.LegalMoves()
			for _, mv := range moves {
				c := g.Clone()
				if err := c.MakeMove(mv); err != nil {
					t.Fatalf("legal move %s rejected: %v", mv, err)
				}
				if c.IsInCheck(mover) {
					t.Fatalf("move %s leaves %s in check\n%s", mv, mover, c.Board())
				}
			}
			if err := g.MakeMove(moves[rng.Intn(len(moves))]); err != nil {
				t.Fatalf("MakeMove: %v", err)
			}
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := NewGame()
	play(t, g, "e2e4", "c7c5", "g1f3", "c5c4", "d2d4")

	raw, err := json.Marshal(g.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var st struct {
		Board      json.RawMessage `json:"board"`
		Turn       *string         `json:"turn"`
		SideToMove string          `json:"sideToMove"`
	}
	if err := json.Unmarshal(raw, &st); err != nil || st.Turn == nil || *st.Turn != "BLACK" {
		t.Fatalf("unexpected wire state: %s (%v)", raw, err)
	}

	var snap chessdto.GameState
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	back, err := Restore(snap)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !back.Board().Equal(g.Board()) || back.Turn() != g.Turn() || back.Ply() != g.Ply() {
		t.Fatalf("round trip mismatch\n%s\n%s", g.Board(), back.Board())
	}
	// c4xd3 en passant must survive the trip
	if !hasMove(back.ValidMoves(Sq("c4")), "c4d3") {
		t.Fatalf("en passant lost in round trip")
	}
}

func TestRestoreRejectsBadInput(t *testing.T) {
	st := NewGame().Snapshot()
	st.Board.Pieces[0].Position.Row = 9
	if _, err := Restore(st); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	st = NewGame().Snapshot()
	st.Board.Pieces[1].Position = st.Board.Pieces[0].Position
	if _, err := Restore(st); err == nil {
		t.Fatalf("expected duplicate square error")
	}
}

func TestNewPositionBounds(t *testing.T) {
	if _, err := NewPosition(0, 3); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("row 0 accepted")
	}
	if _, err := NewPosition(8, 9); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("col 9 accepted")
	}
	if p, err := NewPosition(4, 5); err != nil || p.String() != "e4" {
		t.Fatalf("NewPosition(4,5) = %v, %v", p, err)
	}
}
