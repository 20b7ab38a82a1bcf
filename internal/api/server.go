package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"imgferry/internal/assets"
	"imgferry/internal/ingest"
	"imgferry/internal/logging"
	"imgferry/internal/migration"
)

// AssetCatalog is the asset access the image routes need.
type AssetCatalog interface {
	Get(ctx context.Context, id string) (*assets.StoredAsset, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]assets.Summary, int, error)
}

// HealthFunc reports whether the server can serve requests.
type HealthFunc func(ctx context.Context) error

// Options wires the handlers to their collaborators.
type Options struct {
	Ingest   *ingest.Service
	Migrator *migration.Migrator
	Assets   AssetCatalog
	Health   HealthFunc

	APIToken      string
	PublicBaseURL string
	// MaxUploadBytes caps the archive upload body. Zero means 100 MiB.
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server exposes the HTTP routes.
type Server struct {
	opts   Options
	logger *slog.Logger
	router *gin.Engine
}

var ginModeOnce sync.Once

// NewServer builds the router.
func NewServer(opts Options) *Server {
	ginModeOnce.Do(func() { gin.SetMode(gin.ReleaseMode) })
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}
	s := &Server{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "api"),
		router: gin.New(),
	}
	s.router.MaxMultipartMemory = 8 << 20
	s.setupRoutes()
	return s
}

// Handler returns the http.Handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(recovery(s.logger), requestContext(), requestLogger(s.logger))
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Envelope{Success: false, Error: "route not found"})
	})

	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/images/:id", s.handleGetImage)

	secured := api.Group("", requireToken(s.opts.APIToken))
	secured.GET("/images", s.handleListImages)
	secured.POST("/images/multiple", s.handleUploadImages)
	secured.DELETE("/images/:id", s.handleDeleteImage)
	secured.POST("/posts", s.handleCreatePost)
	secured.PUT("/posts/:id", s.handleUpdatePost)
	secured.POST("/posts/import", s.handleImportPost)

	migrationRoutes := secured.Group("/migration")
	migrationRoutes.GET("/stats", s.handleMigrationStats)
	migrationRoutes.POST("/migrate-all", s.handleMigrateAll)
	migrationRoutes.POST("/migrate-post/:id", s.handleMigratePost)
}

// urlBuilder returns the builder for locations written during this request.
func (s *Server) urlBuilder(c *gin.Context) assets.URLBuilder {
	if base := strings.TrimSpace(s.opts.PublicBaseURL); base != "" {
		return assets.BaseURLBuilder(base)
	}
	return assets.BaseURLBuilder(requestOrigin(c.Request))
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		scheme = strings.ToLower(proto)
	}
	host := r.Host
	if forwarded := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); forwarded != "" {
		host = forwarded
	}
	if host == "" {
		return ""
	}
	return scheme + "://" + host
}

func firstHeaderValue(value string) string {
	if i := strings.IndexByte(value, ','); i >= 0 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.opts.Health != nil {
		if err := s.opts.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, Envelope{Success: false, Error: "unhealthy", Data: HealthResponse{Status: "unavailable", Detail: err.Error()}})
			return
		}
	}
	respond(c, http.StatusOK, "ok", HealthResponse{Status: "ok"})
}
