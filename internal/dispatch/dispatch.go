// Package dispatch serializes outbound server messages and hands them to the
// transport for one connection or every connection of a game.
package dispatch

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/chess-live-server/internal/registry"
	"github.com/park285/chess-live-server/pkg/chessdto"
)

// Sender delivers an encoded frame to one connection. Implementations must
// not block on network I/O.
type Sender interface {
	Send(connID string, payload []byte) error
}

type Dispatcher struct {
	reg    *registry.Registry
	out    Sender
	logger *zap.Logger
}

func New(reg *registry.Registry, out Sender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{reg: reg, out: out, logger: logger}
}

func (d *Dispatcher) Unicast(connID string, msg chessdto.ServerMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.ServerMessageType, err)
	}
	return d.out.Send(connID, raw)
}

// Broadcast sends msg to every connection registered for gameID except the
// listed connection IDs and returns how many sends succeeded. The message is
// encoded once.
func (d *Dispatcher) Broadcast(gameID string, msg chessdto.ServerMessage, except ...string) int {
	raw, err := json.Marshal(msg)
	if err != nil {
		d.logger.Error("dispatch_encode_error", zap.String("game_id", gameID), zap.Error(err))
		return 0
	}
	sent := 0
	for _, e := range d.reg.InGame(gameID) {
		if contains(except, e.ConnID) {
			continue
		}
		if err := d.out.Send(e.ConnID, raw); err != nil {
			d.logger.Warn("dispatch_send_error",
				zap.String("game_id", gameID),
				zap.String("conn_id", e.ConnID),
				zap.String("type", string(msg.ServerMessageType)),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
