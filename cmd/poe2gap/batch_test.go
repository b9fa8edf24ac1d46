package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/poe2gradegap/internal/model"
	"github.com/guarzo/poe2gradegap/internal/progress"
)

type stubAnalyzer struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	fail     map[string]bool
	mu       sync.Mutex
	rules    [][]model.ExclusionRule
}

func (s *stubAnalyzer) AnalyzeGap(_ context.Context, baseType string, rules []model.ExclusionRule) (model.GapReport, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	s.mu.Lock()
	s.rules = append(s.rules, rules)
	s.mu.Unlock()

	if s.fail[baseType] {
		return model.GapReport{}, errors.New("HTTP 502: Bad Gateway")
	}
	return model.GapReport{BaseType: baseType, Gap: float64(len(baseType))}, nil
}

type stubSaver struct {
	mu    sync.Mutex
	saved []string
}

func (s *stubSaver) SaveGap(_ context.Context, r model.GapReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, r.BaseType)
	return r.BaseType + "-id", nil
}

func TestRunBatch(t *testing.T) {
	an := &stubAnalyzer{fail: map[string]bool{"Ruby Ring": true}}
	saver := &stubSaver{}
	rules := []model.ExclusionRule{{Tier: "P1", Active: true}}
	bases := []string{"Gold Ring", "Ruby Ring", "Iron Ring", "Jade Amulet"}

	var out bytes.Buffer
	res, err := runBatch(context.Background(), an, saver, rules, bases, 2, progress.New(&out, "batch", len(bases)))
	require.NoError(t, err)

	require.Len(t, res.Reports, 3)
	// Reports keep input order regardless of completion order.
	assert.Equal(t, "Gold Ring", res.Reports[0].BaseType)
	assert.Equal(t, "Iron Ring", res.Reports[1].BaseType)
	assert.Equal(t, "Jade Amulet-id", res.Reports[2].ID)

	require.Contains(t, res.Failed, "Ruby Ring")
	assert.Len(t, saver.saved, 3)
	assert.LessOrEqual(t, an.peak.Load(), int32(2))

	for _, r := range an.rules {
		assert.Equal(t, rules, r)
	}
	assert.Contains(t, out.String(), "batch: 3 done, 1 failed")
}

func TestRunBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	an := &stubAnalyzer{}
	res, err := runBatch(ctx, an, nil, nil, []string{"Gold Ring", "Iron Ring"}, 1, progress.New(nil, "batch", 2))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Reports)
}

func TestReadBaseTypes(t *testing.T) {
	in := strings.NewReader("# rings\nGold Ring\n\n  Ruby Ring  \nGold Ring\n# amulets\nJade Amulet\n")
	got, err := readBaseTypes(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gold Ring", "Ruby Ring", "Jade Amulet"}, got)
}
