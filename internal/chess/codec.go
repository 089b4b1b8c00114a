package chess

import (
	"fmt"

	"github.com/park285/chess-live-server/pkg/chessdto"
)

// Snapshot serializes the game for the wire and for storage.
func (g *Game) Snapshot() chessdto.GameState {
	st := chessdto.GameState{
		Board:      encodeBoard(&g.board),
		SideToMove: string(g.side),
		Ply:        g.ply,
	}
	if !g.over {
		turn := string(g.side)
		st.Turn = &turn
	}
	return st
}

// Restore rebuilds a game from a snapshot.
func Restore(st chessdto.GameState) (*Game, error) {
	b, err := decodeBoard(st.Board)
	if err != nil {
		return nil, err
	}
	side, err := ParseColor(st.SideToMove)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if st.Ply < 0 {
		return nil, fmt.Errorf("decode state: negative ply %d", st.Ply)
	}
	g := &Game{board: *b, side: side, ply: st.Ply, over: st.Turn == nil}
	return g, nil
}

func encodeBoard(b *Board) chessdto.Board {
	out := chessdto.Board{Pieces: make([]chessdto.PieceEntry, 0, 32)}
	for i, p := range b.cells {
		if p.IsZero() {
			continue
		}
		out.Pieces = append(out.Pieces, chessdto.PieceEntry{
			Position: encodePosition(positionAt(i)),
			Kind:     string(p.Kind),
			Color:    string(p.Color),
			Moved:    p.Moved,
		})
	}
	if ep, ok := b.EnPassant(); ok {
		out.EnPassant = &chessdto.EnPassant{
			Target: encodePosition(ep.Target),
			Pawn:   encodePosition(ep.Pawn),
			Ply:    ep.Ply,
		}
	}
	return out
}

func decodeBoard(in chessdto.Board) (*Board, error) {
	b := &Board{}
	for _, e := range in.Pieces {
		pos, err := DecodePosition(e.Position)
		if err != nil {
			return nil, err
		}
		if _, occupied := b.Piece(pos); occupied {
			return nil, fmt.Errorf("decode board: two pieces on %s", pos)
		}
		kind, err := ParseKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("decode board: %w", err)
		}
		color, err := ParseColor(e.Color)
		if err != nil {
			return nil, fmt.Errorf("decode board: %w", err)
		}
		b.AddPiece(pos, Piece{Kind: kind, Color: color, Moved: e.Moved})
	}
	if in.EnPassant != nil {
		target, err := DecodePosition(in.EnPassant.Target)
		if err != nil {
			return nil, err
		}
		pawn, err := DecodePosition(in.EnPassant.Pawn)
		if err != nil {
			return nil, err
		}
		b.SetEnPassant(EnPassant{Target: target, Pawn: pawn, Ply: in.EnPassant.Ply})
	}
	return b, nil
}

func encodePosition(p Position) chessdto.Position {
	return chessdto.Position{Row: p.Row, Col: p.Col}
}

func DecodePosition(p chessdto.Position) (Position, error) {
	return NewPosition(p.Row, p.Col)
}

// DecodeMove validates a wire move. Legality is checked by MakeMove.
func DecodeMove(m chessdto.Move) (Move, error) {
	start, err := DecodePosition(m.Start)
	if err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	end, err := DecodePosition(m.End)
	if err != nil {
		return Move{}, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	mv := Move{Start: start, End: end}
	if m.Promotion != "" {
		k, err := ParseKind(m.Promotion)
		if err != nil {
			return Move{}, fmt.Errorf("%w: %v", ErrInvalidMove, err)
		}
		mv.Promotion = k
	}
	return mv, nil
}

func EncodeMove(m Move) chessdto.Move {
	return chessdto.Move{Start: encodePosition(m.Start), End: encodePosition(m.End), Promotion: string(m.Promotion)}
}
