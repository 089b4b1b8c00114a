package chessdto

type CommandType string

const (
	CommandJoinPlayer   CommandType = "JOIN_PLAYER"
	CommandJoinObserver CommandType = "JOIN_OBSERVER"
	CommandMakeMove     CommandType = "MAKE_MOVE"
	CommandLeave        CommandType = "LEAVE"
	CommandResign       CommandType = "RESIGN"
)

// Command is the inbound envelope sent by clients.
type Command struct {
	CommandType CommandType `json:"commandType"`
	AuthToken   string      `json:"authToken"`
	GameID      string      `json:"gameID"`
	PlayerColor string      `json:"playerColor,omitempty"`
	Move        *Move       `json:"move,omitempty"`
}

type ServerMessageType string

const (
	MessageLoadGame     ServerMessageType = "LOAD_GAME"
	MessageError        ServerMessageType = "ERROR"
	MessageNotification ServerMessageType = "NOTIFICATION"
)

// ServerMessage is the outbound envelope.
type ServerMessage struct {
	ServerMessageType ServerMessageType `json:"serverMessageType"`
	Game              *GameView         `json:"game,omitempty"`
	ErrorMessage      string            `json:"errorMessage,omitempty"`
	ErrorCode         string            `json:"errorCode,omitempty"`
	Message           string            `json:"message,omitempty"`
}

func LoadGame(g *GameView) ServerMessage {
	return ServerMessage{ServerMessageType: MessageLoadGame, Game: g}
}

func Notification(msg string) ServerMessage {
	return ServerMessage{ServerMessageType: MessageNotification, Message: msg}
}

func ErrorMessage(e DomainError) ServerMessage {
	return ServerMessage{ServerMessageType: MessageError, ErrorMessage: e.Error(), ErrorCode: e.Code}
}
