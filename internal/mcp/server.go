package mcp

import (
	"log/slog"

	"github.com/claude/babytrack/internal/stats"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered. cal
// supplies "now" and the timezone for default ranges.
func New(ds DataSource, cal stats.Calendar, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("babytrack", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("babytrack baby-care statistics. Query sleep, meal and water intake aggregates per day, week, month or year, category distributions and bedtime consistency. Sleep is counted on the day the child woke up."),
	)

	h := &handlers{ds: ds, cal: cal, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetPeriodStatistics, Handler: h.getPeriodStatistics},
		server.ServerTool{Tool: toolGetChart, Handler: h.getChart},
		server.ServerTool{Tool: toolGetRangeSummary, Handler: h.getRangeSummary},
		server.ServerTool{Tool: toolGetCategoryDistribution, Handler: h.getCategoryDistribution},
		server.ServerTool{Tool: toolGetSleepTiming, Handler: h.getSleepTiming},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resToday, Handler: h.today},
		server.ServerResource{Resource: resThisWeek, Handler: h.thisWeek},
		server.ServerResource{Resource: resMilestones, Handler: h.milestones},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	cal stats.Calendar
	log *slog.Logger
}

// --- Resource definitions ---

var resToday = mcp.NewResource(
	"babytrack://today",
	"Today",
	mcp.WithResourceDescription("Today's sleep, meal and water totals"),
	mcp.WithMIMEType("application/json"),
)

var resThisWeek = mcp.NewResource(
	"babytrack://this_week",
	"This Week",
	mcp.WithResourceDescription("Sleep, meal and water totals for the current Monday-start week, with daily averages"),
	mcp.WithMIMEType("application/json"),
)

var resMilestones = mcp.NewResource(
	"babytrack://milestones",
	"Milestones",
	mcp.WithResourceDescription("All recorded developmental milestones, oldest first"),
	mcp.WithMIMEType("application/json"),
)
