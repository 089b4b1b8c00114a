package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/park285/chess-live-server/pkg/chessdto"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
	ErrStaleRecord  = errors.New("stale game record")
)

// GameRecord is the persisted form of one game.
type GameRecord struct {
	GameID        string             `json:"gameID"`
	GameName      string             `json:"gameName"`
	WhiteUsername string             `json:"whiteUsername,omitempty"`
	BlackUsername string             `json:"blackUsername,omitempty"`
	State         chessdto.GameState `json:"state"`
	MovesUCI      []string           `json:"movesUCI"`
	MovesSAN      []string           `json:"movesSAN"`
	Result        *chessdto.Result   `json:"result,omitempty"`
	ECO           string             `json:"eco,omitempty"`
	Opening       string             `json:"opening,omitempty"`
	Version       int64              `json:"version"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func NewGameRecord(id, name string, state chessdto.GameState) *GameRecord {
	now := time.Now()
	return &GameRecord{
		GameID:    strings.TrimSpace(id),
		GameName:  strings.TrimSpace(name),
		State:     state,
		MovesUCI:  []string{},
		MovesSAN:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone deep-copies the record so callers can keep mutating their own copy.
func (r *GameRecord) Clone() *GameRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.MovesUCI = append([]string(nil), r.MovesUCI...)
	c.MovesSAN = append([]string(nil), r.MovesSAN...)
	c.State.Board.Pieces = append([]chessdto.PieceEntry(nil), r.State.Board.Pieces...)
	if r.State.Board.EnPassant != nil {
		ep := *r.State.Board.EnPassant
		c.State.Board.EnPassant = &ep
	}
	if r.State.Turn != nil {
		turn := *r.State.Turn
		c.State.Turn = &turn
	}
	if r.Result != nil {
		res := *r.Result
		c.Result = &res
	}
	return &c
}

// Repository loads and saves game records. Save bumps Version on success.
type Repository interface {
	Load(ctx context.Context, gameID string) (*GameRecord, error)
	Save(ctx context.Context, rec *GameRecord) error
	Create(ctx context.Context, rec *GameRecord) error
}
