package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"imgferry/internal/migration"
)

func (s *Server) handleMigrationStats(c *gin.Context) {
	if s.opts.Migrator == nil {
		respondError(c, http.StatusServiceUnavailable, "migration unavailable")
		return
	}
	stats, err := s.opts.Migrator.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, "could not compute migration stats", err)
		return
	}
	respond(c, http.StatusOK, "migration stats", stats)
}

func (s *Server) handleMigrateAll(c *gin.Context) {
	if s.opts.Migrator == nil {
		respondError(c, http.StatusServiceUnavailable, "migration unavailable")
		return
	}
	var req MigrateAllRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	report, err := s.opts.Migrator.MigrateAll(c.Request.Context(), migration.Options{
		DryRun:     req.DryRun,
		BatchSize:  req.BatchSize,
		URLBuilder: s.urlBuilder(c),
	})
	if err != nil {
		s.fail(c, "migration failed", err)
		return
	}
	message := "migration completed"
	if req.DryRun {
		message = "migration analysis completed"
	}
	respond(c, http.StatusOK, message, report)
}

func (s *Server) handleMigratePost(c *gin.Context) {
	if s.opts.Migrator == nil {
		respondError(c, http.StatusServiceUnavailable, "migration unavailable")
		return
	}
	result, err := s.opts.Migrator.MigrateDocument(c.Request.Context(), c.Param("id"), s.urlBuilder(c))
	if err != nil {
		s.fail(c, "post migration failed", err)
		return
	}
	respond(c, http.StatusOK, "post migration completed", result)
}
