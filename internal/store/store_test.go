package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/chess-live-server/internal/chess"
)

func newTestRedisRepo(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb, err := Dial(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRepository(rdb, time.Hour), mr
}

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.Load(ctx, "missing"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}

	g := chess.NewGame()
	rec := NewGameRecord("g1", "friendly", g.Snapshot())
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, NewGameRecord("g1", "dup", g.Snapshot())); !errors.Is(err, ErrGameExists) {
		t.Fatalf("expected ErrGameExists, got %v", err)
	}

	mv, _ := chess.ParseUCI("e2e4")
	if err := g.MakeMove(mv); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	rec.State = g.Snapshot()
	rec.WhiteUsername = "ann"
	rec.MovesUCI = append(rec.MovesUCI, "e2e4")
	rec.MovesSAN = append(rec.MovesSAN, "e4")
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Load(ctx, "g1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.WhiteUsername != "ann" || len(got.MovesSAN) != 1 || got.Version != rec.Version {
		t.Fatalf("unexpected record %+v", got)
	}
	back, err := chess.Restore(got.State)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !back.Board().Equal(g.Board()) || back.Turn() != chess.Black {
		t.Fatalf("state did not survive storage")
	}

	stale := got.Clone()
	stale.Version = 0
	if err := repo.Save(ctx, stale); !errors.Is(err, ErrStaleRecord) {
		t.Fatalf("expected ErrStaleRecord, got %v", err)
	}
}

func TestRedisRepository(t *testing.T) {
	repo, mr := newTestRedisRepo(t)
	exerciseRepository(t, repo)
	if ttl := mr.TTL("chess:game:g1"); ttl <= 0 {
		t.Fatalf("expected TTL on game key, got %v", ttl)
	}
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryRepository())
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	rec := NewGameRecord("g", "", chess.NewGame().Snapshot())
	_ = repo.Create(ctx, rec)
	a, _ := repo.Load(ctx, "g")
	a.MovesUCI = append(a.MovesUCI, "e2e4")
	a.State.Board.Pieces[0].Kind = "QUEEN"
	b, _ := repo.Load(ctx, "g")
	if len(b.MovesUCI) != 0 || b.State.Board.Pieces[0].Kind != "ROOK" {
		t.Fatalf("Load leaked internal state")
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@localhost:6380/3")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 3 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if _, err := ParseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}
