// Package server exposes the analyzer and store over an HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guarzo/poe2gradegap/internal/analysis"
	"github.com/guarzo/poe2gradegap/internal/logging"
	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/store"
)

// Analyzer is the subset of analysis.Analyzer the API drives.
type Analyzer interface {
	AnalyzeGap(ctx context.Context, baseType string, rules []model.ExclusionRule) (model.GapReport, error)
	AnalyzeDistribution(ctx context.Context, baseType string, buckets int, rules []model.ExclusionRule) (model.DistributionReport, error)
	ModifierStats(ctx context.Context, q model.SearchQuery, limit int) (analysis.StatsRun, error)
}

// RateSource reports the currency table in use.
type RateSource interface {
	Rates() map[string]float64
}

// Server wires HTTP routes to the analyzer and store.
type Server struct {
	analyzer Analyzer
	store    store.Store
	rates    RateSource
	jobs     *jobQueue
	engine   *gin.Engine
	logger   *slog.Logger
}

// New builds the router. Background jobs run under ctx and stop when it is
// cancelled.
func New(ctx context.Context, a Analyzer, st store.Store, rates RateSource, logger *slog.Logger) *Server {
	s := &Server{
		analyzer: a,
		store:    st,
		rates:    rates,
		jobs:     newJobQueue(ctx),
		logger:   logging.OrNew(logger, "server"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/analyze/gap", s.analyzeGap)
	api.POST("/analyze/distribution", s.analyzeDistribution)
	api.POST("/analyze/stats", s.analyzeStats)
	api.GET("/jobs/:id", s.getJob)

	db := api.Group("/db")
	db.GET("/exclusions", s.listExclusions)
	db.POST("/exclusions", s.addExclusion)
	db.PUT("/exclusions/:id", s.updateExclusion)
	db.DELETE("/exclusions/:id", s.deleteExclusion)
	db.GET("/analyses", s.listAnalyses)
	db.GET("/analyses/latest", s.latestAnalyses)
	db.GET("/item-analyses", s.listDistributions)

	api.GET("/currency/rates", s.currencyRates)

	s.engine = r
	return s
}

// Handler returns the routed http.Handler.
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
		s.logger.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.FullPath()),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("elapsed", time.Since(start)))
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// storeStatus maps store errors to HTTP status codes.
func storeStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrNoCriteria):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
