package chessdto

// Error codes carried in ERROR messages.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeGameNotFound     = "GAME_NOT_FOUND"
	CodeInvalidMove      = "INVALID_MOVE"
	CodeNotYourTurn      = "NOT_YOUR_TURN"
	CodeObserverCannot   = "OBSERVER_CANNOT_ACT"
	CodeColorTaken       = "COLOR_TAKEN"
	CodeAlreadyObserving = "ALREADY_OBSERVING"
	CodeGameConcluded    = "GAME_CONCLUDED"
	CodeNotInGame        = "NOT_IN_GAME"
	CodeAlreadyInGame    = "ALREADY_IN_GAME"
	CodeInternal         = "INTERNAL"
)

type DomainError struct {
	Code    string
	Message string
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess server error"
}
