package session

import (
	"errors"

	"github.com/park285/chess-live-server/internal/auth"
	"github.com/park285/chess-live-server/internal/chess"
	"github.com/park285/chess-live-server/internal/store"
	"github.com/park285/chess-live-server/pkg/chessdto"
)

var (
	ErrBadRequest        = errors.New("bad request")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrObserverCannotAct = errors.New("observers cannot move or resign")
	ErrColorTaken        = errors.New("color already taken")
	ErrAlreadyObserving  = errors.New("already observing this game")
	ErrNotInGame         = errors.New("not joined to this game")
	ErrAlreadyInGame     = errors.New("connection already joined a game")
	ErrClosed            = errors.New("coordinator closed")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrBadRequest, chessdto.CodeBadRequest},
	{auth.ErrUnauthorized, chessdto.CodeUnauthorized},
	{store.ErrGameNotFound, chessdto.CodeGameNotFound},
	{chess.ErrInvalidMove, chessdto.CodeInvalidMove},
	{chess.ErrGameConcluded, chessdto.CodeGameConcluded},
	{ErrNotYourTurn, chessdto.CodeNotYourTurn},
	{ErrObserverCannotAct, chessdto.CodeObserverCannot},
	{ErrColorTaken, chessdto.CodeColorTaken},
	{ErrAlreadyObserving, chessdto.CodeAlreadyObserving},
	{ErrNotInGame, chessdto.CodeNotInGame},
	{ErrAlreadyInGame, chessdto.CodeAlreadyInGame},
}

// ToDomainError maps err to the code and text sent in an ERROR message.
// Unknown errors are reported without their internal detail.
func ToDomainError(err error) chessdto.DomainError {
	if err == nil {
		return chessdto.DomainError{}
	}
	var de chessdto.DomainError
	if errors.As(err, &de) {
		return de
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return chessdto.DomainError{Code: ec.code, Message: err.Error()}
		}
	}
	return chessdto.DomainError{Code: chessdto.CodeInternal, Message: "internal error, please retry"}
}
