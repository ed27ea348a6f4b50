package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/babytrack/internal/models"
	"github.com/claude/babytrack/internal/stats"
)

// HTTPClient implements DataSource by calling the babytrack REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func periodParams(g stats.Granularity, window int, anchor time.Time) url.Values {
	v := url.Values{}
	v.Set("granularity", g.String())
	v.Set("window", strconv.Itoa(window))
	if !anchor.IsZero() {
		v.Set("anchor", anchor.Format(time.RFC3339))
	}
	return v
}

func statsPath(kind stats.Kind, suffix string) string {
	return "/api/v1/stats/" + url.PathEscape(string(kind)) + suffix
}

func (c *HTTPClient) Statistics(ctx context.Context, kind stats.Kind, g stats.Granularity, window int, anchor time.Time) ([]stats.PeriodSummary, error) {
	var resp struct {
		Periods []stats.PeriodSummary `json:"periods"`
	}
	if err := c.get(ctx, statsPath(kind, ""), periodParams(g, window, anchor), &resp); err != nil {
		return nil, err
	}
	return resp.Periods, nil
}

func (c *HTTPClient) Chart(ctx context.Context, kind stats.Kind, g stats.Granularity, window int, anchor time.Time) ([]stats.ChartPoint, error) {
	params := periodParams(g, window, anchor)
	params.Set("metric", "hours")

	var points []stats.ChartPoint
	if err := c.get(ctx, statsPath(kind, "/chart"), params, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *HTTPClient) RangeSummary(ctx context.Context, kind stats.Kind, start, end time.Time) (*stats.RangeSummary, error) {
	var rs stats.RangeSummary
	if err := c.get(ctx, statsPath(kind, "/range"), timeParams(start, end), &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (c *HTTPClient) Distribution(ctx context.Context, kind stats.Kind, start, end time.Time) ([]stats.CategoryCount, error) {
	var dist []stats.CategoryCount
	if err := c.get(ctx, statsPath(kind, "/distribution"), timeParams(start, end), &dist); err != nil {
		return nil, err
	}
	return dist, nil
}

func (c *HTTPClient) SleepTiming(ctx context.Context, g stats.Granularity, window int, anchor time.Time) ([]stats.SleepTiming, error) {
	var timing []stats.SleepTiming
	if err := c.get(ctx, statsPath(stats.KindSleep, "/timing"), periodParams(g, window, anchor), &timing); err != nil {
		return nil, err
	}
	return timing, nil
}

func (c *HTTPClient) Milestones(ctx context.Context) ([]models.Milestone, error) {
	var ms []models.Milestone
	if err := c.get(ctx, "/api/v1/milestones", nil, &ms); err != nil {
		return nil, err
	}
	return ms, nil
}
