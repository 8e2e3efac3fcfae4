package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/pipeline"
	"github.com/nao1215/badgegraph/internal/work"
)

// WorkService hands out and ingests crawl work.
type WorkService interface {
	Dispatch(ctx context.Context) (string, error)
	Submit(ctx context.Context, sub model.Submission) (*pipeline.Ingestion, error)
}

// Authenticator checks worker and admin credentials and issues worker keys.
type Authenticator interface {
	IssueKey(ctx context.Context) (string, error)
	ValidKey(ctx context.Context, header string) (bool, error)
	ValidAdmin(header string) bool
}

// GraphJob exports the graph document.
type GraphJob interface {
	Run(ctx context.Context) (*model.Graph, error)
	Trigger(ctx context.Context) bool
}

// FrontierSizer reports the number of queued URLs.
type FrontierSizer interface {
	Len() int
}

// handleCreateAccount handles POST /create_account.
func (s *Server) handleCreateAccount(c *gin.Context) {
	key, err := s.auth.IssueKey(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	s.logger.Info("issued worker key")
	c.String(http.StatusOK, key)
}

// handleGetWork handles GET /work.
func (s *Server) handleGetWork(c *gin.Context) {
	url, err := s.work.Dispatch(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.String(http.StatusOK, url)
}

// handlePostWork handles POST /work.
func (s *Server) handlePostWork(c *gin.Context) {
	var sub model.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		s.logger.Debug("rejected malformed submission", "error", err)
		c.Status(http.StatusBadRequest)
		return
	}

	_, err := s.work.Submit(c.Request.Context(), sub)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, work.ErrInvalidURL):
		s.logger.Debug("rejected submission", "error", err)
		c.Status(http.StatusBadRequest)
	default:
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
	}
}

// handleGraph handles GET /graph.
func (s *Server) handleGraph(c *gin.Context) {
	if s.cfg.GraphSynchronous {
		g, err := s.graph.Run(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, g)
		return
	}

	if !s.graph.Trigger(s.baseContext()) {
		s.logger.Debug("graph export already running")
	}
	c.Status(http.StatusAccepted)
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(c *gin.Context) {
	size := 0
	if s.frontier != nil {
		size = s.frontier.Len()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"frontier": size,
	})
}
