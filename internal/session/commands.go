package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/chess-live-server/internal/chess"
	"github.com/park285/chess-live-server/internal/notation"
	"github.com/park285/chess-live-server/internal/registry"
	"github.com/park285/chess-live-server/pkg/chessdto"
)

func roleFor(c chess.Color) registry.Role {
	if c == chess.White {
		return registry.RolePlayerWhite
	}
	return registry.RolePlayerBlack
}

func colorOf(r registry.Role) chess.Color {
	switch r {
	case registry.RolePlayerWhite:
		return chess.White
	case registry.RolePlayerBlack:
		return chess.Black
	}
	return chess.NoColor
}

// member returns the caller's registry entry for the actor's game.
func (c *Coordinator) member(a *actor, r request) (registry.Entry, error) {
	e, ok := c.reg.Get(r.connID)
	if !ok || e.GameID != a.gameID || e.Username != r.username {
		return registry.Entry{}, fmt.Errorf("%w: %s", ErrNotInGame, a.gameID)
	}
	return e, nil
}

func (c *Coordinator) joinPlayer(ctx context.Context, a *actor, r request) error {
	if e, ok := c.reg.Get(r.connID); ok {
		return fmt.Errorf("%w: %s", ErrAlreadyInGame, e.GameID)
	}
	color, err := chess.ParseColor(r.cmd.PlayerColor)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	slot := a.slot(color)
	if *slot != "" && *slot != r.username {
		return fmt.Errorf("%w: %s is played by %s", ErrColorTaken, color, *slot)
	}
	if *a.slot(color.Opponent()) == r.username {
		return fmt.Errorf("%w: %s already plays %s", ErrColorTaken, r.username, color.Opponent())
	}
	if err := c.reg.Add(registry.Entry{ConnID: r.connID, Username: r.username, GameID: a.gameID, Role: roleFor(color)}); err != nil {
		return fmt.Errorf("%w: %v", ErrAlreadyInGame, err)
	}

	var saveErr error
	if *slot == "" {
		*slot = r.username
		a.touch()
		saveErr = a.persist(ctx)
	}

	_ = c.out.Unicast(r.connID, chessdto.LoadGame(a.view()))
	c.notify(a.gameID, "notify.join_player", map[string]any{"User": r.username, "Color": string(color)}, r.connID)
	c.logger.Info("game_join",
		zap.String("game_id", a.gameID),
		zap.String("user", r.username),
		zap.String("role", string(roleFor(color))),
	)
	return saveErr
}

func (c *Coordinator) joinObserver(_ context.Context, a *actor, r request) error {
	if e, ok := c.reg.Get(r.connID); ok {
		return fmt.Errorf("%w: %s", ErrAlreadyInGame, e.GameID)
	}
	for _, e := range c.reg.InGame(a.gameID) {
		if e.Role == registry.RoleObserver && e.Username == r.username {
			return fmt.Errorf("%w: %s", ErrAlreadyObserving, a.gameID)
		}
	}
	if err := c.reg.Add(registry.Entry{ConnID: r.connID, Username: r.username, GameID: a.gameID, Role: registry.RoleObserver}); err != nil {
		return fmt.Errorf("%w: %v", ErrAlreadyInGame, err)
	}

	_ = c.out.Unicast(r.connID, chessdto.LoadGame(a.view()))
	c.notify(a.gameID, "notify.join_observer", map[string]any{"User": r.username}, r.connID)
	c.logger.Info("game_join",
		zap.String("game_id", a.gameID),
		zap.String("user", r.username),
		zap.String("role", string(registry.RoleObserver)),
	)
	return nil
}

func (c *Coordinator) makeMove(ctx context.Context, a *actor, r request) error {
	e, err := c.member(a, r)
	if err != nil {
		return err
	}
	if !e.Role.IsPlayer() {
		return ErrObserverCannotAct
	}
	if a.game.Concluded() {
		return chess.ErrGameConcluded
	}
	color := colorOf(e.Role)
	if a.game.Turn() != color {
		return fmt.Errorf("%w: %s to move", ErrNotYourTurn, a.game.Turn())
	}
	if r.cmd.Move == nil {
		return fmt.Errorf("%w: move required", ErrBadRequest)
	}
	mv, err := chess.DecodeMove(*r.cmd.Move)
	if err != nil {
		return err
	}

	before := a.game.Clone()
	if err := a.game.MakeMove(mv); err != nil {
		return err
	}
	san, err := notation.SAN(before, mv)
	if err != nil {
		c.logger.Warn("san_encode_error", zap.String("game_id", a.gameID), zap.String("move", mv.String()), zap.Error(err))
		san = mv.String()
	}
	a.rec.MovesUCI = append(a.rec.MovesUCI, mv.String())
	a.rec.MovesSAN = append(a.rec.MovesSAN, san)
	if len(a.rec.MovesUCI) <= notation.OpeningMaxPly {
		if op, ok, err := notation.IdentifyOpening(a.rec.MovesUCI); err != nil {
			c.logger.Debug("opening_lookup_error", zap.String("game_id", a.gameID), zap.Error(err))
		} else if ok {
			a.rec.ECO, a.rec.Opening = op.Code, op.Title
		}
	}

	status := a.game.Status()
	switch status {
	case chess.StatusCheckmate:
		a.rec.Result = &chessdto.Result{Winner: string(a.game.Winner()), Method: chessdto.MethodCheckmate}
	case chess.StatusStalemate:
		a.rec.Result = &chessdto.Result{Method: chessdto.MethodStalemate}
	}
	a.touch()
	saveErr := a.persist(ctx)

	c.out.Broadcast(a.gameID, chessdto.LoadGame(a.view()))
	c.notify(a.gameID, "notify.move", map[string]any{"User": r.username, "Move": san}, r.connID)
	switch status {
	case chess.StatusCheck:
		c.notify(a.gameID, "notify.check", map[string]any{"Color": string(a.game.SideToMove())})
	case chess.StatusCheckmate:
		c.notify(a.gameID, "notify.checkmate", map[string]any{"Winner": string(a.game.Winner())})
	case chess.StatusStalemate:
		c.notify(a.gameID, "notify.stalemate", nil)
	}

	c.logger.Info("game_move",
		zap.String("game_id", a.gameID),
		zap.String("user", r.username),
		zap.String("uci", mv.String()),
		zap.String("san", san),
		zap.String("status", string(status)),
	)
	if a.game.Concluded() {
		c.archive(ctx, a.rec)
	}
	return saveErr
}

func (c *Coordinator) resign(ctx context.Context, a *actor, r request) error {
	e, err := c.member(a, r)
	if err != nil {
		return err
	}
	if !e.Role.IsPlayer() {
		return ErrObserverCannotAct
	}
	if a.game.Concluded() {
		return chess.ErrGameConcluded
	}
	winner := colorOf(e.Role).Opponent()
	a.game.Conclude()
	a.rec.Result = &chessdto.Result{Winner: string(winner), Method: chessdto.MethodResignation}
	a.touch()
	saveErr := a.persist(ctx)

	c.out.Broadcast(a.gameID, chessdto.LoadGame(a.view()))
	c.notify(a.gameID, "notify.resign", map[string]any{"User": r.username, "Winner": string(winner)})
	c.logger.Info("game_resign",
		zap.String("game_id", a.gameID),
		zap.String("user", r.username),
		zap.String("winner", string(winner)),
	)
	c.archive(ctx, a.rec)
	return saveErr
}

// leave drops the connection. A player's seat opens again unless the game is
// over or the same user still holds it from another connection.
func (c *Coordinator) leave(ctx context.Context, a *actor, r request) error {
	e, err := c.member(a, r)
	if err != nil {
		return err
	}
	c.reg.Remove(r.connID)

	var saveErr error
	freed := false
	if color := colorOf(e.Role); color != chess.NoColor && !a.game.Concluded() && !c.stillSeated(a, e) {
		if slot := a.slot(color); *slot == e.Username {
			*slot = ""
			freed = true
			a.touch()
			saveErr = a.persist(ctx)
		}
	}

	if freed {
		c.notify(a.gameID, "notify.leave_player", map[string]any{"User": e.Username, "Color": string(colorOf(e.Role))})
	} else {
		c.notify(a.gameID, "notify.leave", map[string]any{"User": e.Username})
	}
	c.logger.Info("game_leave",
		zap.String("game_id", a.gameID),
		zap.String("user", e.Username),
		zap.String("role", string(e.Role)),
		zap.Bool("seat_freed", freed),
	)
	return saveErr
}

func (c *Coordinator) stillSeated(a *actor, left registry.Entry) bool {
	for _, e := range c.reg.InGame(a.gameID) {
		if e.Username == left.Username && e.Role == left.Role {
			return true
		}
	}
	return false
}
