package chessdto

// Result describes how a concluded game ended. Winner is empty for a draw.
type Result struct {
	Winner string `json:"winner,omitempty"`
	Method string `json:"method"`
}

const (
	MethodCheckmate   = "checkmate"
	MethodStalemate   = "stalemate"
	MethodResignation = "resignation"
)
