// Package web serves the plan pages and JSON API over HTTP.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/javiermolinar/dayplan/internal/plan"
	"github.com/javiermolinar/dayplan/internal/planner"
	"github.com/javiermolinar/dayplan/internal/timegrid"
)

//go:embed templates/*.html
var templateFS embed.FS

// historyPageSize is the number of past plans per history page.
const historyPageSize = 7

// Generator creates plans from task titles.
type Generator interface {
	Generate(ctx context.Context, req planner.Request) (*planner.Result, error)
}

// Windows holds the grid windows used by the views.
type Windows struct {
	Default timegrid.Window // today and API views
	Full    timegrid.Window // ?full=1
	Detail  timegrid.Window // day detail page
}

// Server handles HTTP requests.
type Server struct {
	repo      plan.Repository
	generator Generator
	toggler   plan.Toggler
	grids     map[string]timegrid.Grid
	logger    *zap.SugaredLogger
	now       func() time.Time
	engine    *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New builds a Server and its routes.
func New(repo plan.Repository, generator Generator, windows Windows, opts ...Option) (*Server, error) {
	s := &Server{
		repo:      repo,
		generator: generator,
		toggler:   plan.Toggler{Repo: repo},
		grids:     make(map[string]timegrid.Grid, 3),
		logger:    zap.NewNop().Sugar(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for name, w := range map[string]timegrid.Window{
		"default": windows.Default,
		"full":    windows.Full,
		"detail":  windows.Detail,
	} {
		g, err := timegrid.New(w)
		if err != nil {
			return nil, fmt.Errorf("%s window: %w", name, err)
		}
		s.grids[name] = g
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s.engine = gin.New()
	s.engine.SetHTMLTemplate(tmpl)
	setupMiddleware(s.engine, s.logger)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/today")
	})
	r.GET("/today", s.todayPage)
	r.GET("/history", s.historyPage)
	r.GET("/plans/:date", s.planPage)
	r.GET("/create", s.createForm)
	r.POST("/create", s.createPlan)

	api := r.Group("/api")
	{
		api.GET("/plans", s.listPlans)
		api.POST("/plans", s.generatePlan)
		api.GET("/plans/:date/view", s.planView)
		api.DELETE("/plans/:id", s.deletePlan)
		api.POST("/tasks/:id/toggle", s.toggleTask)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// grid picks the default or full-day grid.
func (s *Server) grid(name string, full bool) timegrid.Grid {
	if full {
		return s.grids["full"]
	}
	return s.grids[name]
}
