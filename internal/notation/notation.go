// Package notation renders positions and moves in standard chess notations
// (FEN, SAN) with corentings/chess doing the SAN disambiguation.
package notation

import (
	"fmt"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-live-server/internal/chess"
)

// FEN renders g in Forsyth-Edwards notation. The half-move clock is not
// tracked and is always 0.
func FEN(g *chess.Game) string {
	b := g.Board()
	var sb strings.Builder
	for row := 8; row >= 1; row-- {
		empty := 0
		for col := 1; col <= 8; col++ {
			p, ok := b.Piece(chess.Position{Row: row, Col: col})
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(p.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if row > 1 {
			sb.WriteByte('/')
		}
	}

	side := "w"
	if g.SideToMove() == chess.Black {
		side = "b"
	}
	ep := "-"
	if rec, ok := b.EnPassant(); ok && rec.Ply+1 == g.Ply() {
		ep = rec.Target.String()
	}
	return fmt.Sprintf("%s %s %s %s 0 %d", sb.String(), side, castlingRights(b), ep, g.Ply()/2+1)
}

func castlingRights(b *chess.Board) string {
	var out strings.Builder
	rights := []struct {
		color   chess.Color
		rookCol int
		letter  string
	}{
		{chess.White, 8, "K"}, {chess.White, 1, "Q"},
		{chess.Black, 8, "k"}, {chess.Black, 1, "q"},
	}
	for _, r := range rights {
		row := 1
		if r.color == chess.Black {
			row = 8
		}
		k, ok := b.Piece(chess.Position{Row: row, Col: 5})
		if !ok || k.Kind != chess.King || k.Color != r.color || k.Moved {
			continue
		}
		rk, ok := b.Piece(chess.Position{Row: row, Col: r.rookCol})
		if !ok || rk.Kind != chess.Rook || rk.Color != r.color || rk.Moved {
			continue
		}
		out.WriteString(r.letter)
	}
	if out.Len() == 0 {
		return "-"
	}
	return out.String()
}

// SAN encodes mv, played from the position in before, in standard algebraic
// notation.
func SAN(before *chess.Game, mv chess.Move) (string, error) {
	ng, err := load(before)
	if err != nil {
		return "", err
	}
	pos := ng.Position()
	m, err := nchess.UCINotation{}.Decode(pos, mv.String())
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", mv, err)
	}
	return nchess.AlgebraicNotation{}.Encode(pos, m), nil
}

// LegalMoveCount counts legal moves for the side to move as computed by
// corentings/chess. Used to cross-check the rules engine.
func LegalMoveCount(g *chess.Game) (int, error) {
	ng, err := load(g)
	if err != nil {
		return 0, err
	}
	return len(ng.ValidMoves()), nil
}

func load(g *chess.Game) (*nchess.Game, error) {
	opt, err := nchess.FEN(FEN(g))
	if err != nil {
		return nil, fmt.Errorf("load fen: %w", err)
	}
	return nchess.NewGame(opt), nil
}
