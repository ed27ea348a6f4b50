package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/claude/babytrack/internal/config"
	"github.com/claude/babytrack/internal/stats"
	"github.com/claude/babytrack/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	granularity := flag.String("granularity", "day", "period size: day, week, month or year")
	window := flag.Int("window", 0, "number of periods (defaults to stats.default_window)")
	width := flag.Int("width", 60, "chart width in columns")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	g, err := stats.ParseGranularity(*granularity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	n := *window
	if n <= 0 {
		n = cfg.Stats.DefaultWindow
	}
	loc, err := cfg.Stats.Location()
	if err != nil {
		log.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	kv, closeKV, err := storage.Open(ctx, cfg.Storage, "migrations", log)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeKV()

	store := storage.NewStore(kv, log)
	if err := store.Load(ctx); err != nil {
		log.Error("failed to load records", "error", err)
		os.Exit(1)
	}
	engine := stats.NewEngine(store, stats.WithCalendar(stats.NewCalendar(loc)), stats.WithLogger(log))

	printReport(os.Stdout, engine, g, n, *width)
}

func printReport(w io.Writer, e *stats.Engine, g stats.Granularity, window, width int) {
	cal := e.Calendar()
	now := cal.Today()
	fmt.Fprintf(w, "babytrack report: %d %s periods ending %s\n\n", window, g, cal.Label(g, now))

	sleep := e.Statistics(stats.KindSleep, g, window, now)
	printTable(w, "Sleep", sleep, func(p stats.PeriodSummary) string {
		return fmt.Sprintf("%2d sessions  total %-8s avg %s", p.Count, fmtDuration(p.TotalDuration), fmtDuration(p.AverageDuration))
	})
	if chart := stats.RenderChart(stats.ChartPoints(sleep), width, 8, "sleep hours per "+g.String()); chart != "" {
		fmt.Fprintln(w, chart)
		fmt.Fprintln(w)
	}

	meals := e.Statistics(stats.KindMeal, g, window, now)
	printTable(w, "Meals", meals, func(p stats.PeriodSummary) string {
		return fmt.Sprintf("%2d meals  %6.0f ml", p.Count, p.TotalQuantity)
	})
	if chart := stats.RenderChart(stats.CountPoints(meals), width, 8, "meals per "+g.String()); chart != "" {
		fmt.Fprintln(w, chart)
		fmt.Fprintln(w)
	}

	water := e.Statistics(stats.KindWater, g, window, now)
	printTable(w, "Water", water, func(p stats.PeriodSummary) string {
		return fmt.Sprintf("%2d drinks  %6.0f ml", p.Count, p.TotalQuantity)
	})
	if chart := stats.RenderChart(stats.QuantityPoints(water), width, 8, "water ml per "+g.String()); chart != "" {
		fmt.Fprintln(w, chart)
		fmt.Fprintln(w)
	}

	if len(meals) > 0 {
		dist := e.Distribution(stats.KindMeal, meals[0].Start, meals[len(meals)-1].End)
		if len(dist) > 0 {
			fmt.Fprintln(w, "Meal types")
			for _, c := range dist {
				fmt.Fprintf(w, "  %-10s %d\n", c.Category, c.Count)
			}
			fmt.Fprintln(w)
		}
	}

	timing := e.SleepTiming(g, window, now)
	fmt.Fprintln(w, "Sleep timing")
	for _, t := range timing {
		if t.Sessions == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-28s bed %s (±%.1fh)  wake %s (±%.1fh)\n",
			t.Label, t.AvgBedtime, t.BedtimeConsistencyStdHr, t.AvgWaketime, t.WaketimeConsistencyStdHr)
	}
}

func printTable(w io.Writer, title string, periods []stats.PeriodSummary, row func(stats.PeriodSummary) string) {
	fmt.Fprintln(w, title)
	for _, p := range periods {
		marker := " "
		if p.Current {
			marker = "*"
		}
		fmt.Fprintf(w, " %s%-28s %s\n", marker, p.Label, row(p))
	}
	fmt.Fprintln(w)
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
