package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guarzo/poe2gradegap/internal/model"
)

type analyzeRequest struct {
	BaseType string `json:"base_type" binding:"required"`
	Buckets  int    `json:"buckets"`
}

type statsRequest struct {
	Query model.SearchQuery `json:"query" binding:"required"`
	Limit int               `json:"limit"`
}

type exclusionRequest struct {
	NamePattern string `json:"mod_name_pattern"`
	Tier        string `json:"mod_tier"`
	Group       string `json:"mod_type"`
	Reason      string `json:"reason"`
	Active      *bool  `json:"is_active"`
}

func (r exclusionRequest) rule() model.ExclusionRule {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return model.ExclusionRule{
		NamePattern: r.NamePattern,
		Tier:        r.Tier,
		Group:       r.Group,
		Reason:      r.Reason,
		Active:      active,
	}
}

func (s *Server) analyzeGap(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	ctx := c.Request.Context()

	rules, err := s.store.ActiveExclusions(ctx)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	report, err := s.analyzer.AnalyzeGap(ctx, strings.TrimSpace(req.BaseType), rules)
	if err != nil {
		s.fail(c, http.StatusBadGateway, err)
		return
	}
	if report.ID, err = s.store.SaveGap(ctx, report); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) analyzeDistribution(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	baseType := strings.TrimSpace(req.BaseType)

	// The rule snapshot is taken now so later edits do not leak into the run.
	rules, err := s.store.ActiveExclusions(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}

	job := s.jobs.start("distribution", baseType, func(ctx context.Context) (any, error) {
		report, err := s.analyzer.AnalyzeDistribution(ctx, baseType, req.Buckets, rules)
		if err != nil {
			return nil, err
		}
		if report.ID, err = s.store.SaveDistribution(ctx, report); err != nil {
			return nil, err
		}
		return report, nil
	})
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) analyzeStats(c *gin.Context) {
	var req statsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	run, err := s.analyzer.ModifierStats(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		s.fail(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) getJob(c *gin.Context) {
	job, ok := s.jobs.get(c.Param("id"))
	if !ok {
		s.fail(c, http.StatusNotFound, errors.New("job not found"))
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) listExclusions(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))
	rules, err := s.store.ListExclusions(c.Request.Context(), all)
	if err != nil {
		s.fail(c, storeStatus(err), err)
		return
	}
	if rules == nil {
		rules = []model.ExclusionRule{}
	}
	c.JSON(http.StatusOK, rules)
}

func (s *Server) addExclusion(c *gin.Context) {
	var req exclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	rule, err := s.store.AddExclusion(c.Request.Context(), req.rule())
	if err != nil {
		s.fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) updateExclusion(c *gin.Context) {
	var req exclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	rule := req.rule()
	rule.ID = c.Param("id")
	if err := s.store.UpdateExclusion(c.Request.Context(), rule); err != nil {
		s.fail(c, storeStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Server) deleteExclusion(c *gin.Context) {
	if err := s.store.DeactivateExclusion(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, storeStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listAnalyses(c *gin.Context) {
	reports, err := s.store.ListGaps(c.Request.Context(), c.Query("base_type"), queryInt(c, "limit"))
	if err != nil {
		s.fail(c, storeStatus(err), err)
		return
	}
	if reports == nil {
		reports = []model.GapReport{}
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) latestAnalyses(c *gin.Context) {
	reports, err := s.store.LatestGaps(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		s.fail(c, storeStatus(err), err)
		return
	}
	if reports == nil {
		reports = []model.GapReport{}
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) listDistributions(c *gin.Context) {
	reports, err := s.store.ListDistributions(c.Request.Context(), c.Query("base_type"), queryInt(c, "limit"))
	if err != nil {
		s.fail(c, storeStatus(err), err)
		return
	}
	if reports == nil {
		reports = []model.DistributionReport{}
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) currencyRates(c *gin.Context) {
	if s.rates == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.rates.Rates())
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}
