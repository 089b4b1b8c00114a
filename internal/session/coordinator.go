// Package session runs live games. Each active game is owned by one actor
// goroutine that applies commands in arrival order, persists the record and
// hands the resulting messages to the dispatcher.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-live-server/internal/chess"
	"github.com/park285/chess-live-server/internal/registry"
	"github.com/park285/chess-live-server/internal/store"
	"github.com/park285/chess-live-server/pkg/chessdto"
)

// Authenticator resolves an auth token to a username.
type Authenticator interface {
	ResolveUser(ctx context.Context, token string) (string, error)
}

// Broadcaster delivers server messages to one connection or to a whole game.
type Broadcaster interface {
	Unicast(connID string, msg chessdto.ServerMessage) error
	Broadcast(gameID string, msg chessdto.ServerMessage, except ...string) int
}

type Renderer interface {
	Render(key string, data any) (string, error)
}

// Archiver stores finished games.
type Archiver interface {
	Archive(ctx context.Context, rec *store.GameRecord) error
}

type Deps struct {
	Repo       store.Repository
	Auth       Authenticator
	Registry   *registry.Registry
	Dispatcher Broadcaster
	Messages   Renderer // optional, keys are sent verbatim without it
	Archive    Archiver // optional
	Logger     *zap.Logger
}

type request struct {
	connID   string
	username string
	cmd      chessdto.Command
}

type handler func(c *Coordinator, ctx context.Context, a *actor, r request) error

type Coordinator struct {
	repo     store.Repository
	auth     Authenticator
	reg      *registry.Registry
	out      Broadcaster
	msgs     Renderer
	archiver Archiver
	logger   *zap.Logger

	handlers map[chessdto.CommandType]handler

	mu     sync.Mutex
	actors map[string]*actor
	closed bool
}

func New(d Deps) (*Coordinator, error) {
	switch {
	case d.Repo == nil:
		return nil, errors.New("session: repository required")
	case d.Auth == nil:
		return nil, errors.New("session: authenticator required")
	case d.Registry == nil:
		return nil, errors.New("session: registry required")
	case d.Dispatcher == nil:
		return nil, errors.New("session: dispatcher required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		repo:     d.Repo,
		auth:     d.Auth,
		reg:      d.Registry,
		out:      d.Dispatcher,
		msgs:     d.Messages,
		archiver: d.Archive,
		logger:   logger,
		handlers: map[chessdto.CommandType]handler{
			chessdto.CommandJoinPlayer:   (*Coordinator).joinPlayer,
			chessdto.CommandJoinObserver: (*Coordinator).joinObserver,
			chessdto.CommandMakeMove:     (*Coordinator).makeMove,
			chessdto.CommandResign:       (*Coordinator).resign,
			chessdto.CommandLeave:        (*Coordinator).leave,
		},
		actors: make(map[string]*actor),
	}, nil
}

// Handle runs one inbound command for connID. Any failure is also sent to
// connID as an ERROR message.
func (c *Coordinator) Handle(ctx context.Context, connID string, cmd chessdto.Command) error {
	err := c.handle(ctx, connID, cmd)
	if err != nil {
		c.logger.Info("command_rejected",
			zap.String("conn_id", connID),
			zap.String("game_id", cmd.GameID),
			zap.String("command", string(cmd.CommandType)),
			zap.Error(err),
		)
		c.ReportError(connID, err)
	}
	return err
}

func (c *Coordinator) handle(ctx context.Context, connID string, cmd chessdto.Command) error {
	h, ok := c.handlers[cmd.CommandType]
	if !ok {
		return fmt.Errorf("%w: unknown command type %q", ErrBadRequest, cmd.CommandType)
	}
	gameID := strings.TrimSpace(cmd.GameID)
	if gameID == "" {
		return fmt.Errorf("%w: gameID required", ErrBadRequest)
	}
	username, err := c.auth.ResolveUser(ctx, cmd.AuthToken)
	if err != nil {
		return err
	}
	r := request{connID: connID, username: username, cmd: cmd}
	return c.run(ctx, gameID, func(ctx context.Context, a *actor) error {
		return h(c, ctx, a, r)
	})
}

// ReportError sends err to connID as an ERROR message.
func (c *Coordinator) ReportError(connID string, err error) {
	if sendErr := c.out.Unicast(connID, chessdto.ErrorMessage(ToDomainError(err))); sendErr != nil {
		c.logger.Debug("error_report_failed", zap.String("conn_id", connID), zap.Error(sendErr))
	}
}

// Disconnect leaves whatever game connID had joined. Connections that never
// joined are ignored.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) error {
	e, ok := c.reg.Get(connID)
	if !ok {
		return nil
	}
	r := request{connID: connID, username: e.Username, cmd: chessdto.Command{CommandType: chessdto.CommandLeave, GameID: e.GameID}}
	return c.run(ctx, e.GameID, func(ctx context.Context, a *actor) error {
		return c.leave(ctx, a, r)
	})
}

// CreateGame stores a fresh game and returns its view.
func (c *Coordinator) CreateGame(ctx context.Context, name string) (*chessdto.GameView, error) {
	g := chess.NewGame()
	rec := store.NewGameRecord(uuid.NewString(), name, g.Snapshot())
	if err := c.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	c.logger.Info("game_create", zap.String("game_id", rec.GameID), zap.String("game_name", rec.GameName))
	return &chessdto.GameView{
		GameID:   rec.GameID,
		GameName: rec.GameName,
		State:    rec.State,
		Status:   string(g.Status()),
		MovesSAN: []string{},
	}, nil
}

// View returns the current state of gameID, from the live actor when one exists.
func (c *Coordinator) View(ctx context.Context, gameID string) (*chessdto.GameView, error) {
	var v *chessdto.GameView
	err := c.run(ctx, strings.TrimSpace(gameID), func(_ context.Context, a *actor) error {
		v = a.view()
		return nil
	})
	return v, err
}

// Active reports how many games are loaded.
func (c *Coordinator) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.actors)
}

// Close stops every actor after flushing unsaved records.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	live := make([]*actor, 0, len(c.actors))
	for _, a := range c.actors {
		live = append(live, a)
	}
	c.mu.Unlock()

	for _, a := range live {
		a.halt()
	}
	for _, a := range live {
		select {
		case <-a.quit:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// run executes fn on the actor that owns gameID, starting one if needed. An
// accepted job always runs to completion so commands from one connection keep
// their order.
func (c *Coordinator) run(ctx context.Context, gameID string, fn func(context.Context, *actor) error) error {
	for {
		a, err := c.actorFor(gameID)
		if err != nil {
			return err
		}
		done := make(chan error, 1)
		select {
		case a.jobs <- job{ctx: ctx, fn: fn, done: done}:
			return <-done
		case <-a.quit:
			if a.err != nil {
				return a.err
			}
			// evicted between lookup and submit
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Coordinator) actorFor(gameID string) (*actor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if a, ok := c.actors[gameID]; ok {
		return a, nil
	}
	a := newActor(c, gameID)
	c.actors[gameID] = a
	go a.loop()
	return a, nil
}

func (c *Coordinator) forget(a *actor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.actors[a.gameID] == a {
		delete(c.actors, a.gameID)
	}
}

// text renders a notification, falling back to the key.
func (c *Coordinator) text(key string, data map[string]any) string {
	if c.msgs == nil {
		return key
	}
	s, err := c.msgs.Render(key, data)
	if err != nil {
		c.logger.Warn("message_render_error", zap.String("key", key), zap.Error(err))
		return key
	}
	return s
}

func (c *Coordinator) notify(gameID, key string, data map[string]any, except ...string) {
	c.out.Broadcast(gameID, chessdto.Notification(c.text(key, data)), except...)
}

func (c *Coordinator) archive(ctx context.Context, rec *store.GameRecord) {
	if c.archiver == nil {
		return
	}
	if err := c.archiver.Archive(ctx, rec.Clone()); err != nil {
		c.logger.Error("game_archive_error", zap.String("game_id", rec.GameID), zap.Error(err))
	}
}
