package mcp

import (
	"context"
	"time"

	"github.com/claude/babytrack/internal/models"
	"github.com/claude/babytrack/internal/stats"
	"github.com/claude/babytrack/internal/storage"
)

// DataSource abstracts the statistics layer for MCP tools. Both Local
// (in-process engine) and HTTPClient (remote via REST API) satisfy it.
type DataSource interface {
	Statistics(ctx context.Context, kind stats.Kind, g stats.Granularity, window int, anchor time.Time) ([]stats.PeriodSummary, error)
	Chart(ctx context.Context, kind stats.Kind, g stats.Granularity, window int, anchor time.Time) ([]stats.ChartPoint, error)
	RangeSummary(ctx context.Context, kind stats.Kind, start, end time.Time) (*stats.RangeSummary, error)
	Distribution(ctx context.Context, kind stats.Kind, start, end time.Time) ([]stats.CategoryCount, error)
	SleepTiming(ctx context.Context, g stats.Granularity, window int, anchor time.Time) ([]stats.SleepTiming, error)
	Milestones(ctx context.Context) ([]models.Milestone, error)
}

// Local serves MCP tools from an in-process engine and store.
type Local struct {
	Engine *stats.Engine
	Store  *storage.Store
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = Local{}

func (l Local) Statistics(_ context.Context, kind stats.Kind, g stats.Granularity, window int, anchor time.Time) ([]stats.PeriodSummary, error) {
	return l.Engine.Statistics(kind, g, window, anchor), nil
}

func (l Local) Chart(_ context.Context, kind stats.Kind, g stats.Granularity, window int, anchor time.Time) ([]stats.ChartPoint, error) {
	return l.Engine.Chart(kind, g, window, anchor), nil
}

func (l Local) RangeSummary(_ context.Context, kind stats.Kind, start, end time.Time) (*stats.RangeSummary, error) {
	rs := l.Engine.RangeSummary(kind, start, end)
	return &rs, nil
}

func (l Local) Distribution(_ context.Context, kind stats.Kind, start, end time.Time) ([]stats.CategoryCount, error) {
	return l.Engine.Distribution(kind, start, end), nil
}

func (l Local) SleepTiming(_ context.Context, g stats.Granularity, window int, anchor time.Time) ([]stats.SleepTiming, error) {
	return l.Engine.SleepTiming(g, window, anchor), nil
}

func (l Local) Milestones(_ context.Context) ([]models.Milestone, error) {
	return l.Store.Milestones.List(), nil
}
