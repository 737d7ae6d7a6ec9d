// Package server exposes a parser pool over HTTP.
package server

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ling0322/lexparse"
	"github.com/ling0322/lexparse/internal/batch"
	"github.com/ling0322/lexparse/model"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	ErrorCodeInvalidJSON     ErrorCode = "INVALID_JSON"
	ErrorCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrorCodeSentenceTooLong ErrorCode = "SENTENCE_TOO_LONG"
	ErrorCodeTimeout         ErrorCode = "TIMEOUT"
	ErrorCodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

// APIError represents a standardized API error response
type APIError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// ParseRequest holds either whitespace separated text or pre-split tokens.
// Tokens may carry a gold tag, like dog/NN
type ParseRequest struct {
	Sentence string   `json:"sentence"`
	Tokens   []string `json:"tokens"`
}

// ArcResponse is one dependency of the best parse
type ArcResponse struct {
	Head          int      `json:"head"`
	Dependent     int      `json:"dependent"`
	HeadWord      string   `json:"head_word"`
	DependentWord string   `json:"dependent_word"`
	Score         *float64 `json:"score,omitempty"`
}

// ParseResponse is the result of POST /parse. Score and Tree are empty when
// the sentence has no parse. Scores JSON cannot carry are left out
type ParseResponse struct {
	ID     string        `json:"id"`
	Parsed bool          `json:"parsed"`
	Score  *float64      `json:"score,omitempty"`
	Tree   string        `json:"tree,omitempty"`
	Arcs   []ArcResponse `json:"arcs,omitempty"`
}

// Server holds the model and the parser pool behind the handlers
type Server struct {
	model   *model.Model
	pool    *batch.Pool
	logger  *zap.Logger
	timeout time.Duration
}

// New creates a server. timeout bounds a single parse, 0 means no bound
func New(m *model.Model, pool *batch.Pool, logger *zap.Logger, timeout time.Duration) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		model:   m,
		pool:    pool,
		logger:  logger,
		timeout: timeout,
	}
}

// Router creates a gin engine with every route of the server
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	SetupRoutes(router, s)
	return router
}

// SetupRoutes defines the API routes
func SetupRoutes(router *gin.Engine, s *Server) {
	router.Use(RequestIDMiddleware(), LoggerMiddleware(s.logger))
	router.GET("/health", s.HealthCheckHandler)
	router.POST("/parse", s.ParseHandler)
}

// RequestIDMiddleware tags every request with a fresh id
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// LoggerMiddleware logs every request once it is served
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string) {
	c.JSON(statusCode, &APIError{
		Code:      code,
		Message:   message,
		RequestID: c.GetString("request_id"),
	})
}

// HealthCheckHandler provides a simple health check endpoint
func (s *Server) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "lexparse",
		"parsers": s.pool.Size(),
	})
}

// ParseHandler parses one sentence and returns its best parse.
// Request Body: ParseRequest
func (s *Server) ParseHandler(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}
	tokens := req.Tokens
	if len(tokens) == 0 {
		tokens = strings.Fields(req.Sentence)
	}

	sentence, err := s.model.Sentence(tokens)
	if err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result := s.pool.Parse(ctx, sentence)
	if result.Err != nil {
		switch {
		case errors.Is(result.Err, lexparse.ErrCapacity):
			SendError(c, http.StatusRequestEntityTooLarge, ErrorCodeSentenceTooLong, result.Err.Error())
		case errors.Is(result.Err, context.DeadlineExceeded), errors.Is(result.Err, context.Canceled):
			SendError(c, http.StatusServiceUnavailable, ErrorCodeTimeout, result.Err.Error())
		default:
			s.logger.Error("parse failed",
				zap.String("request_id", c.GetString("request_id")),
				zap.Error(result.Err))
			SendError(c, http.StatusInternalServerError, ErrorCodeInternalError, result.Err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, newParseResponse(c.GetString("request_id"), sentence, result))
}

// newParseResponse renders a pool result. A result without a tree reports
// no parse
func newParseResponse(id string, sentence lexparse.Sentence, result batch.Result) ParseResponse {
	resp := ParseResponse{ID: id}
	if !result.Parsed || result.Tree == nil {
		return resp
	}
	resp.Parsed = true
	resp.Score = finite(result.Score)
	resp.Tree = result.Tree.Bracketed()
	for _, arc := range result.Arcs {
		if arc.Dependent < 0 || arc.Dependent >= len(sentence) {
			continue
		}
		headWord := model.RootBin
		if arc.Head >= 0 && arc.Head < len(sentence) {
			headWord = sentence[arc.Head].Text
		}
		resp.Arcs = append(resp.Arcs, ArcResponse{
			Head:          arc.Head,
			Dependent:     arc.Dependent,
			HeadWord:      headWord,
			DependentWord: sentence[arc.Dependent].Text,
			Score:         finite(arc.Score),
		})
	}
	return resp
}

// finite returns nil for scores that have no JSON number
func finite(score float64) *float64 {
	if math.IsInf(score, 0) || math.IsNaN(score) {
		return nil
	}
	return &score
}
