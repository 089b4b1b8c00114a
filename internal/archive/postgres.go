// Package archive records finished games in Postgres together with their PGN.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/chess-live-server/internal/store"
	"github.com/park285/chess-live-server/pkg/chessdto"
)

type Postgres struct {
	db *sql.DB
}

func Open(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func New(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

const schema = `CREATE TABLE IF NOT EXISTS chess_games (
    game_id       TEXT PRIMARY KEY,
    game_name     TEXT NOT NULL DEFAULT '',
    white_name    TEXT NOT NULL DEFAULT '',
    black_name    TEXT NOT NULL DEFAULT '',
    result        TEXT NOT NULL,
    result_method TEXT NOT NULL,
    moves_uci     JSONB NOT NULL,
    moves_san     JSONB NOT NULL,
    pgn           TEXT NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ NOT NULL,
    duration_ms   BIGINT NOT NULL
)`

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

// Archive upserts a concluded game. Records without a result are ignored.
func (p *Postgres) Archive(ctx context.Context, rec *store.GameRecord) error {
	if p == nil || p.db == nil || rec == nil || rec.Result == nil {
		return nil
	}
	pgnResult := ResultToken(rec.Result)
	pgn := BuildPGN(rec)

	movesUCIRaw, _ := json.Marshal(rec.MovesUCI)
	movesSANRaw, _ := json.Marshal(rec.MovesSAN)
	duration := rec.UpdatedAt.Sub(rec.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO chess_games (
        game_id, game_name, white_name, black_name,
        result, result_method, moves_uci, moves_san, pgn,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
      ) ON CONFLICT (game_id) DO UPDATE SET
        game_name=EXCLUDED.game_name,
        white_name=EXCLUDED.white_name,
        black_name=EXCLUDED.black_name,
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := p.db.ExecContext(ctx, q,
		rec.GameID, rec.GameName,
		rec.WhiteUsername, rec.BlackUsername,
		pgnResult, rec.Result.Method,
		string(movesUCIRaw), string(movesSANRaw), pgn,
		rec.CreatedAt, rec.UpdatedAt, duration,
	)
	return err
}

// ResultToken maps a result to the PGN result string.
func ResultToken(r *chessdto.Result) string {
	if r == nil {
		return "*"
	}
	switch strings.ToUpper(strings.TrimSpace(r.Winner)) {
	case "WHITE":
		return "1-0"
	case "BLACK":
		return "0-1"
	case "":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func BuildPGN(rec *store.GameRecord) string {
	if rec == nil {
		return ""
	}
	result := "*"
	if rec.Result != nil {
		result = ResultToken(rec.Result)
	}
	date := rec.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	event := rec.GameName
	if strings.TrimSpace(event) == "" {
		event = "Live game"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Event \"%s\"]\n", sanitizePGN(event))
	b.WriteString("[Site \"chess-live-server\"]\n")
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	fmt.Fprintf(&b, "[White \"%s\"]\n", sanitizePGN(orUnknown(rec.WhiteUsername)))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", sanitizePGN(orUnknown(rec.BlackUsername)))
	if rec.ECO != "" {
		fmt.Fprintf(&b, "[ECO \"%s\"]\n", sanitizePGN(rec.ECO))
		fmt.Fprintf(&b, "[Opening \"%s\"]\n", sanitizePGN(rec.Opening))
	}
	if rec.Result != nil && strings.TrimSpace(rec.Result.Method) != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(rec.Result.Method)))
	}
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", result)

	for i := 0; i < len(rec.MovesSAN); i += 2 {
		fmt.Fprintf(&b, "%d. %s", i/2+1, strings.TrimSpace(rec.MovesSAN[i]))
		if i+1 < len(rec.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(rec.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
