package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/babytrack/internal/stats"
	"github.com/mark3labs/mcp-go/mcp"
)

const maxWindow = 400

// defaultTimeRange returns start/end defaulting to the 7 calendar days
// ending with today. A missing end is the end of today; a date-only end
// includes that whole day.
func defaultTimeRange(startStr, endStr string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	var start, end time.Time

	if endStr != "" {
		t, dateOnly, err := parseFlexTime(endStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
		if dateOnly {
			end = end.AddDate(0, 0, 1)
		}
	} else {
		y, m, d := now.Date()
		end = time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	}

	if startStr != "" {
		t, _, err := parseFlexTime(startStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	} else {
		start = end.AddDate(0, 0, -7)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return start, end, nil
}

// parseFlexTime accepts RFC 3339 or YYYY-MM-DD (midnight in loc).
func parseFlexTime(s string, loc *time.Location) (time.Time, bool, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, false, nil
	}
	t, err = time.ParseInLocation("2006-01-02", s, loc)
	if err == nil {
		return t, true, nil
	}
	return time.Time{}, false, err
}

// periodArgs reads the shared granularity/window/anchor arguments.
func (h *handlers) periodArgs(req mcp.CallToolRequest) (stats.Granularity, int, time.Time, error) {
	g, err := stats.ParseGranularity(req.GetString("granularity", stats.Day.String()))
	if err != nil {
		return 0, 0, time.Time{}, err
	}

	window := req.GetInt("window", 7)
	if window < 1 || window > maxWindow {
		return 0, 0, time.Time{}, fmt.Errorf("window must be between 1 and %d", maxWindow)
	}

	var anchor time.Time
	if s := req.GetString("anchor", ""); s != "" {
		anchor, _, err = parseFlexTime(s, h.cal.Today().Location())
		if err != nil {
			return 0, 0, time.Time{}, fmt.Errorf("invalid anchor: %w", err)
		}
	}
	return g, window, anchor, nil
}

// --- Tool definitions ---

var granularityEnum = mcp.Enum(stats.Day.String(), stats.Week.String(), stats.Month.String(), stats.Year.String())

var toolGetPeriodStatistics = mcp.NewTool("get_period_statistics",
	mcp.WithDescription("Per-period totals for sleep, meals or water. Returns one summary per day/week/month/year, oldest first, ending with the period containing the anchor. Each summary has total and average duration, count, total quantity (ml), days in the period and whether it is the current period. Sleep counts toward the day the child woke up."),
	mcp.WithString("kind", mcp.Required(), mcp.Description("Record kind"), mcp.Enum(string(stats.KindSleep), string(stats.KindMeal), string(stats.KindWater))),
	mcp.WithString("granularity", mcp.Description("Period size. Defaults to 'day'. Weeks start on Monday."), granularityEnum),
	mcp.WithNumber("window", mcp.Description("Number of periods to return. Defaults to 7.")),
	mcp.WithString("anchor", mcp.Description("Any instant inside the newest period (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetChart = mcp.NewTool("get_chart",
	mcp.WithDescription("Chart-ready points (label, value, period start) for sleep, meals or water, plus an ASCII rendering. Values are total hours, total quantity (ml) or event count per period."),
	mcp.WithString("kind", mcp.Required(), mcp.Description("Record kind"), mcp.Enum(string(stats.KindSleep), string(stats.KindMeal), string(stats.KindWater))),
	mcp.WithString("granularity", mcp.Description("Period size. Defaults to 'day'."), granularityEnum),
	mcp.WithNumber("window", mcp.Description("Number of periods. Defaults to 7.")),
	mcp.WithString("anchor", mcp.Description("Any instant inside the newest period. Defaults to now.")),
	mcp.WithString("metric", mcp.Description("Value to plot. Defaults to 'hours'."), mcp.Enum("hours", "quantity", "count")),
)

var toolGetRangeSummary = mcp.NewTool("get_range_summary",
	mcp.WithDescription("Totals for sleep, meals or water over an explicit date range, with per-day averages."),
	mcp.WithString("kind", mcp.Required(), mcp.Description("Record kind"), mcp.Enum(string(stats.KindSleep), string(stats.KindMeal), string(stats.KindWater))),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days before end.")),
	mcp.WithString("end", mcp.Description("End date, exclusive for timestamps, inclusive for YYYY-MM-DD. Defaults to the end of today.")),
)

var toolGetCategoryDistribution = mcp.NewTool("get_category_distribution",
	mcp.WithDescription("Event counts per category over a date range, most frequent first. For meals the category is the meal type (bottle, breast, solid, ...); for milestones it is the developmental area (motor, language, social, ...). Uncategorised records are not counted."),
	mcp.WithString("kind", mcp.Description("Record kind. Defaults to 'meals'."), mcp.Enum(string(stats.KindMeal), string(stats.KindMilestone))),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 7 days before end.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to the end of today.")),
)

var toolGetSleepTiming = mcp.NewTool("get_sleep_timing",
	mcp.WithDescription("Average bedtime and wake time per period with consistency (circular standard deviation in hours)."),
	mcp.WithString("granularity", mcp.Description("Period size. Defaults to 'day'."), granularityEnum),
	mcp.WithNumber("window", mcp.Description("Number of periods. Defaults to 7.")),
	mcp.WithString("anchor", mcp.Description("Any instant inside the newest period. Defaults to now.")),
)

// --- Tool handlers ---

func (h *handlers) getPeriodStatistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kindStr, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError("kind parameter is required"), nil
	}
	kind, err := stats.ParseKind(kindStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, window, anchor, err := h.periodArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	periods, err := h.ds.Statistics(ctx, kind, g, window, anchor)
	if err != nil {
		h.log.Error("mcp get_period_statistics", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"kind":        kind,
		"granularity": g.String(),
		"periods":     periods,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getChart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kindStr, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError("kind parameter is required"), nil
	}
	kind, err := stats.ParseKind(kindStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, window, anchor, err := h.periodArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	metric := req.GetString("metric", "hours")
	var points []stats.ChartPoint
	switch metric {
	case "hours":
		points, err = h.ds.Chart(ctx, kind, g, window, anchor)
	case "quantity", "count":
		var periods []stats.PeriodSummary
		periods, err = h.ds.Statistics(ctx, kind, g, window, anchor)
		if metric == "quantity" {
			points = stats.QuantityPoints(periods)
		} else {
			points = stats.CountPoints(periods)
		}
	default:
		return mcp.NewToolResultError("metric must be hours, quantity or count"), nil
	}
	if err != nil {
		h.log.Error("mcp get_chart", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"kind":   kind,
		"metric": metric,
		"points": points,
		"ascii":  stats.RenderChart(points, 60, 12, fmt.Sprintf("%s %s per %s", kind, metric, g)),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRangeSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kindStr, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError("kind parameter is required"), nil
	}
	kind, err := stats.ParseKind(kindStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	now := h.cal.Today()
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), now, now.Location())
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	summary, err := h.ds.RangeSummary(ctx, kind, start, end)
	if err != nil {
		h.log.Error("mcp get_range_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(summary)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getCategoryDistribution(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := stats.ParseKind(req.GetString("kind", string(stats.KindMeal)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	now := h.cal.Today()
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), now, now.Location())
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	dist, err := h.ds.Distribution(ctx, kind, start, end)
	if err != nil {
		h.log.Error("mcp get_category_distribution", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"kind":       kind,
		"start":      start,
		"end":        end,
		"categories": dist,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSleepTiming(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, window, anchor, err := h.periodArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	timing, err := h.ds.SleepTiming(ctx, g, window, anchor)
	if err != nil {
		h.log.Error("mcp get_sleep_timing", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(timing)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
