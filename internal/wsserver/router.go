package wsserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/park285/chess-live-server/internal/session"
	"github.com/park285/chess-live-server/pkg/chessdto"
)

// NewRouter wires /ws, /healthz and the read-mostly game API. /ws bypasses
// gin so the upgrade sees the raw http.ResponseWriter.
func NewRouter(s *Server) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/healthz", s.health)
	api := r.Group("/api")
	api.POST("/games", s.createGame)
	api.GET("/games/:id", s.getGame)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.ServeWS)
	mux.Handle("/", r)
	return mux
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/healthz" {
			return
		}
		logger.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.hub.Count(),
		"games":       s.coord.Active(),
	})
}

type createGameRequest struct {
	GameName string `json:"gameName"`
}

func (s *Server) createGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, chessdto.DomainError{Code: chessdto.CodeBadRequest, Message: "invalid body"})
		return
	}
	if strings.TrimSpace(req.GameName) == "" {
		writeError(c, chessdto.DomainError{Code: chessdto.CodeBadRequest, Message: "gameName required"})
		return
	}
	v, err := s.coord.CreateGame(c.Request.Context(), req.GameName)
	if err != nil {
		s.logger.Error("game_create_error", zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (s *Server) getGame(c *gin.Context) {
	v, err := s.coord.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func writeError(c *gin.Context, err error) {
	de := session.ToDomainError(err)
	status := http.StatusInternalServerError
	switch de.Code {
	case chessdto.CodeBadRequest:
		status = http.StatusBadRequest
	case chessdto.CodeGameNotFound:
		status = http.StatusNotFound
	case chessdto.CodeUnauthorized:
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"errorCode": de.Code, "errorMessage": de.Error()})
}
