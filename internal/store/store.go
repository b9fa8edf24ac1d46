// Package store persists exclusion rules and analysis results. Two backends
// are provided: SQLite for single-user installs and MongoDB for shared ones.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guarzo/poe2gradegap/internal/config"
	"github.com/guarzo/poe2gradegap/internal/model"
)

var (
	// ErrNotFound is returned when an id does not name a stored record.
	ErrNotFound = errors.New("not found")
	// ErrNoCriteria rejects exclusion rules that would match nothing.
	ErrNoCriteria = errors.New("exclusion needs a tier, type or name pattern")
)

// DefaultListLimit bounds list queries when the caller passes limit <= 0.
const DefaultListLimit = 50

// ExclusionStore is what an analysis run needs: the active rule snapshot.
type ExclusionStore interface {
	ActiveExclusions(ctx context.Context) ([]model.ExclusionRule, error)
}

// Store is the full persistence surface used by the CLI and HTTP API.
type Store interface {
	ExclusionStore

	AddExclusion(ctx context.Context, r model.ExclusionRule) (model.ExclusionRule, error)
	ListExclusions(ctx context.Context, includeInactive bool) ([]model.ExclusionRule, error)
	UpdateExclusion(ctx context.Context, r model.ExclusionRule) error
	DeactivateExclusion(ctx context.Context, id string) error

	SaveGap(ctx context.Context, r model.GapReport) (string, error)
	ListGaps(ctx context.Context, baseType string, limit int) ([]model.GapReport, error)
	LatestGaps(ctx context.Context, limit int) ([]model.GapReport, error)

	SaveDistribution(ctx context.Context, r model.DistributionReport) (string, error)
	ListDistributions(ctx context.Context, baseType string, limit int) ([]model.DistributionReport, error)

	Close(ctx context.Context) error
}

// Open connects the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mongo", "mongodb":
		s, err := OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// normalizeExclusion trims a rule and checks it constrains something.
func normalizeExclusion(r model.ExclusionRule) (model.ExclusionRule, error) {
	r.NamePattern = strings.TrimSpace(r.NamePattern)
	r.Tier = strings.TrimSpace(r.Tier)
	r.Group = strings.TrimSpace(r.Group)
	if !r.HasCriteria() {
		return r, ErrNoCriteria
	}
	return r, nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
