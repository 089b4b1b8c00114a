package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-live-server/internal/chess"
	"github.com/park285/chess-live-server/internal/store"
	"github.com/park285/chess-live-server/pkg/chessdto"
)

const (
	loadTimeout  = 5 * time.Second
	flushTimeout = 5 * time.Second
)

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context, a *actor) error
	done chan error
}

// actor owns one game. Only its goroutine touches rec and game.
type actor struct {
	c      *Coordinator
	gameID string

	jobs     chan job
	stop     chan struct{}
	stopOnce sync.Once
	quit     chan struct{}
	err      error // load failure, readable after quit is closed

	rec   *store.GameRecord
	game  *chess.Game
	dirty bool
}

func newActor(c *Coordinator, gameID string) *actor {
	return &actor{
		c:      c,
		gameID: gameID,
		jobs:   make(chan job),
		stop:   make(chan struct{}),
		quit:   make(chan struct{}),
	}
}

func (a *actor) loop() {
	defer close(a.quit)

	if err := a.load(); err != nil {
		a.err = err
		a.c.forget(a)
		return
	}
	a.c.logger.Debug("session_load", zap.String("game_id", a.gameID))

	for {
		select {
		case j := <-a.jobs:
			j.done <- j.fn(j.ctx, a)
			if a.c.reg.Count(a.gameID) == 0 {
				a.evict()
				return
			}
		case <-a.stop:
			a.evict()
			return
		}
	}
}

func (a *actor) halt() { a.stopOnce.Do(func() { close(a.stop) }) }

func (a *actor) load() error {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	rec, err := a.c.repo.Load(ctx, a.gameID)
	if err != nil {
		return err
	}
	g, err := chess.Restore(rec.State)
	if err != nil {
		return fmt.Errorf("restore %s: %w", a.gameID, err)
	}
	a.rec, a.game = rec, g
	return nil
}

// evict flushes unsaved changes and removes the actor from the table. The
// flush happens first so a replacement actor loads the latest record.
func (a *actor) evict() {
	if a.dirty {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if err := a.persist(ctx); err != nil {
			a.c.logger.Error("session_flush_error", zap.String("game_id", a.gameID), zap.Error(err))
		}
		cancel()
	}
	a.c.forget(a)
	a.c.logger.Debug("session_evict", zap.String("game_id", a.gameID))
}

// touch copies the engine state into the record and marks it unsaved.
func (a *actor) touch() {
	a.rec.State = a.game.Snapshot()
	a.rec.UpdatedAt = time.Now()
	a.dirty = true
}

func (a *actor) persist(ctx context.Context) error {
	if err := a.c.repo.Save(ctx, a.rec); err != nil {
		a.c.logger.Error("game_save_error", zap.String("game_id", a.gameID), zap.Error(err))
		return fmt.Errorf("save game %s: %w", a.gameID, err)
	}
	a.dirty = false
	return nil
}

// slot returns the record field holding the username for color.
func (a *actor) slot(c chess.Color) *string {
	if c == chess.White {
		return &a.rec.WhiteUsername
	}
	return &a.rec.BlackUsername
}

func (a *actor) view() *chessdto.GameView {
	rec := a.rec.Clone()
	return &chessdto.GameView{
		GameID:        rec.GameID,
		GameName:      rec.GameName,
		WhiteUsername: rec.WhiteUsername,
		BlackUsername: rec.BlackUsername,
		State:         rec.State,
		Status:        string(a.game.Status()),
		MovesSAN:      rec.MovesSAN,
		Opening:       rec.Opening,
		Result:        rec.Result,
	}
}
