// Package server exposes tables over HTTP and websockets.
//
// A client creates a table with POST /api/tables and receives a table token.
// It then opens GET /api/tables/:id/ws?token=... and exchanges JSON commands
// and events with the table.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/acesup/service/internal/auth"
	"github.com/jason-s-yu/acesup/service/internal/cache"
	"github.com/jason-s-yu/acesup/service/internal/database"
	"github.com/jason-s-yu/acesup/service/internal/game"
)

const (
	ctxHandle = "tableHandle"
	ctxClaims = "tableClaims"
)

var (
	errResultsDisabled = errors.New("results store is not configured")
	errHistoryDisabled = errors.New("action history is not configured")
	errTableMismatch   = errors.New("token does not grant this table")
	errTableNotFound   = errors.New("table not found")
)

// ResultReader lists finished games.
type ResultReader interface {
	RecentResults(ctx context.Context, variant string, limit int) ([]database.GameResult, error)
}

// HistoryReader replays a table's logged actions.
type HistoryReader interface {
	History(ctx context.Context, tableID uuid.UUID, limit int) ([]cache.ActionRecord, error)
}

// Options configures a Server.
type Options struct {
	Tables         *Registry
	Tokens         *auth.Issuer
	Results        ResultReader  // optional
	History        HistoryReader // optional
	AllowedOrigins []string
	Log            logrus.FieldLogger
}

// Server is the HTTP front of the table registry.
type Server struct {
	tables  *Registry
	tokens  *auth.Issuer
	results ResultReader
	history HistoryReader
	origins []string
	log     logrus.FieldLogger
	router  *gin.Engine
}

// New builds the server and its routes.
func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	s := &Server{
		tables:  opts.Tables,
		tokens:  opts.Tokens,
		results: opts.Results,
		history: opts.History,
		origins: opts.AllowedOrigins,
		log:     log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	api.POST("/tables", s.handleCreateTable)
	api.GET("/results", s.handleResults)

	table := api.Group("/tables/:id", s.requireTableToken())
	table.GET("/ws", s.handleTableStream)
	table.GET("/history", s.handleHistory)
	table.DELETE("", s.handleDeleteTable)
	return r
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Server: listening on %s.", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("Server: stopped.")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("Server: request served.")
	}
}

// requireTableToken resolves :id and checks the caller's table token.
func (s *Server) requireTableToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			errorJSON(c, http.StatusBadRequest, fmt.Errorf("invalid table id: %w", err))
			return
		}
		token := c.Query("token")
		if token == "" {
			token = bearer(c.GetHeader("Authorization"))
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			errorJSON(c, http.StatusUnauthorized, err)
			return
		}
		if claims.TableID != id {
			errorJSON(c, http.StatusForbidden, errTableMismatch)
			return
		}
		h, ok := s.tables.Get(id)
		if !ok {
			errorJSON(c, http.StatusNotFound, errTableNotFound)
			return
		}
		c.Set(ctxClaims, claims)
		c.Set(ctxHandle, h)
		c.Next()
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"tables": s.tables.Len(),
	})
}

type createTableRequest struct {
	Variant string `json:"variant"`
}

type createTableResponse struct {
	ID      uuid.UUID `json:"id"`
	Variant string    `json:"variant"`
	Token   string    `json:"token"`
}

func (s *Server) handleCreateTable(c *gin.Context) {
	var req createTableRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
			return
		}
	}
	if req.Variant == "" {
		req.Variant = game.VariantAcesUp
	}

	h, err := s.tables.Create(c.Request.Context(), req.Variant)
	switch {
	case errors.Is(err, ErrUnknownVariant):
		errorJSON(c, http.StatusBadRequest, err)
		return
	case errors.Is(err, ErrTooManyTables):
		errorJSON(c, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		s.log.Errorf("Server: %v", err)
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}

	token, err := s.tokens.Issue(h.ID(), h.Variant())
	if err != nil {
		s.tables.Remove(h.ID())
		s.log.Errorf("Server: issue token for table %s: %v", h.ID(), err)
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, createTableResponse{ID: h.ID(), Variant: h.Variant(), Token: token})
}

func (s *Server) handleDeleteTable(c *gin.Context) {
	h := c.MustGet(ctxHandle).(*Handle)
	s.tables.Remove(h.ID())
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		errorJSON(c, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	h := c.MustGet(ctxHandle).(*Handle)
	recs, err := s.history.History(c.Request.Context(), h.ID(), limit)
	if err != nil {
		s.log.Errorf("Server: %v", err)
		errorJSON(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": recs})
}

func (s *Server) handleResults(c *gin.Context) {
	if s.results == nil {
		errorJSON(c, http.StatusServiceUnavailable, errResultsDisabled)
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	variant := c.Query("variant")
	if variant != "" && variant != game.VariantAcesUp && variant != game.VariantStripJack {
		errorJSON(c, http.StatusBadRequest, fmt.Errorf("%w: %q", ErrUnknownVariant, variant))
		return
	}
	res, err := s.results.RecentResults(c.Request.Context(), variant, limit)
	if err != nil {
		s.log.Errorf("Server: %v", err)
		errorJSON(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": res})
}

func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func errorJSON(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
