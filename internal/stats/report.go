package stats

import (
	"context"

	"github.com/verte-zerg/tsplit/internal/model"
)

// Source reads the attempt archive.
type Source interface {
	ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]model.AttemptAggregate, error)
	ListSegmentAggregates(ctx context.Context, attemptIDs []string) ([]model.SegmentAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Attempts       []model.AttemptAggregate
	WindowIDs      []string
	SegmentsAll    []model.SegmentAggregate
	SegmentsWindow []model.SegmentAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src Source, cfg model.StatsConfig) (Report, error) {
	attempts, err := src.ListAttempts(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(attempts) > cfg.Last {
		attempts = attempts[len(attempts)-cfg.Last:]
	}

	windowIDs := lastAttemptIDs(attempts, cfg.CurveWindow)
	segmentsAll, err := src.ListSegmentAggregates(ctx, attemptIDs(attempts))
	if err != nil {
		return Report{}, err
	}
	segmentsWindow, err := src.ListSegmentAggregates(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Attempts:       attempts,
		WindowIDs:      windowIDs,
		SegmentsAll:    segmentsAll,
		SegmentsWindow: segmentsWindow,
	}, nil
}

// Summary summarizes the report over all loaded attempts.
func (r Report) Summary() Summary {
	return Summarize(r.Attempts, r.SegmentsAll, segmentCount(r.SegmentsAll))
}

// segmentCount infers the run length from the highest recorded segment index.
func segmentCount(aggs []model.SegmentAggregate) int {
	n := 0
	for _, a := range aggs {
		n = max(n, a.Index+1)
	}
	return n
}

func attemptIDs(attempts []model.AttemptAggregate) []string {
	ids := make([]string, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
	}
	return ids
}

func lastAttemptIDs(attempts []model.AttemptAggregate, window int) []string {
	if window <= 0 || len(attempts) <= window {
		return attemptIDs(attempts)
	}
	return attemptIDs(attempts[len(attempts)-window:])
}
