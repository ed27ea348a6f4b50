package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/babytrack/internal/stats"
	"github.com/mark3labs/mcp-go/mcp"
)

var summaryKinds = []stats.Kind{stats.KindSleep, stats.KindMeal, stats.KindWater}

func (h *handlers) today(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return h.periodResource(ctx, req, stats.Day)
}

func (h *handlers) thisWeek(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return h.periodResource(ctx, req, stats.Week)
}

func (h *handlers) periodResource(ctx context.Context, req mcp.ReadResourceRequest, g stats.Granularity) ([]mcp.ResourceContents, error) {
	now := h.cal.Today()
	start, end := h.cal.Range(g, now)

	summary := map[string]any{
		"period": h.cal.Label(g, now),
		"start":  start,
		"end":    end,
	}
	for _, kind := range summaryKinds {
		rs, err := h.ds.RangeSummary(ctx, kind, start, end)
		if err != nil {
			h.log.Warn("resource: range summary failed", "kind", kind, "error", err)
			continue
		}
		summary[string(kind)] = rs
	}
	if dist, err := h.ds.Distribution(ctx, stats.KindMeal, start, end); err == nil {
		summary["meal_types"] = dist
	} else {
		h.log.Warn("resource: meal distribution failed", "error", err)
	}

	return jsonContents(req, summary)
}

func (h *handlers) milestones(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ms, err := h.ds.Milestones(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req, ms)
}

func jsonContents(req mcp.ReadResourceRequest, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
