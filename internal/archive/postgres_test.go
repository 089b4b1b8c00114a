package archive

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-live-server/internal/store"
	"github.com/park285/chess-live-server/pkg/chessdto"
)

func TestBuildPGN(t *testing.T) {
	rec := &store.GameRecord{
		GameID:        "g1",
		GameName:      `Club "night"`,
		WhiteUsername: "ann",
		BlackUsername: "bob",
		MovesSAN:      []string{"f3", "e5", "g4", "Qh4#"},
		ECO:           "A00",
		Opening:       "Barnes Opening",
		Result:        &chessdto.Result{Winner: "BLACK", Method: chessdto.MethodCheckmate},
		UpdatedAt:     time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC),
	}
	pgn := BuildPGN(rec)
	for _, want := range []string{
		`[Event "Club 'night'"]`,
		`[Date "2026.03.07"]`,
		`[White "ann"]`,
		`[Termination "checkmate"]`,
		`[ECO "A00"]`,
		`[Opening "Barnes Opening"]`,
		`[Result "0-1"]`,
		"1. f3 e5 2. g4 Qh4# 0-1",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("PGN missing %q:\n%s", want, pgn)
		}
	}
}

func TestResultToken(t *testing.T) {
	cases := map[string]*chessdto.Result{
		"1-0":     {Winner: "WHITE", Method: chessdto.MethodResignation},
		"1/2-1/2": {Method: chessdto.MethodStalemate},
		"*":       nil,
	}
	for want, r := range cases {
		if got := ResultToken(r); got != want {
			t.Fatalf("ResultToken(%+v) = %q, want %q", r, got, want)
		}
	}
}

func TestArchiveIgnoresUnfinished(t *testing.T) {
	var p *Postgres
	if err := p.Archive(context.Background(), &store.GameRecord{GameID: "g"}); err != nil {
		t.Fatalf("nil archive should be a no-op: %v", err)
	}
	if err := New(nil).Archive(context.Background(), &store.GameRecord{GameID: "g"}); err != nil {
		t.Fatalf("unfinished game should be skipped: %v", err)
	}
}
