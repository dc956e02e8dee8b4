package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clubgraph/clubgraph/internal/config"
	"github.com/clubgraph/clubgraph/internal/engine"
	"github.com/clubgraph/clubgraph/internal/export"
	"github.com/clubgraph/clubgraph/internal/graph"
	"github.com/clubgraph/clubgraph/internal/logging"
	"github.com/clubgraph/clubgraph/internal/observability"
	"github.com/clubgraph/clubgraph/internal/render"
	"github.com/clubgraph/clubgraph/internal/server"
	"github.com/clubgraph/clubgraph/internal/source"
	"github.com/clubgraph/clubgraph/internal/viz"
)

func main() {
	var (
		configPath string
		dataPath   string
	)

	rootCmd := &cobra.Command{
		Use:   "clubgraph",
		Short: "Football club network analysis and visualization engine",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/clubgraph.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "Override data directory for the file source")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the visualization API and event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, dataPath)
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print a centrality and community report for the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(configPath, dataPath)
		},
	}

	var (
		pathSource int
		pathTarget int
	)
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Find the strongest-connection path between two clubs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(configPath, dataPath, pathSource, pathTarget)
		},
	}
	pathCmd.Flags().IntVar(&pathSource, "from", 0, "Source club id")
	pathCmd.Flags().IntVar(&pathTarget, "to", 0, "Target club id")
	_ = pathCmd.MarkFlagRequired("from")
	_ = pathCmd.MarkFlagRequired("to")

	var (
		recommendClub  int
		recommendLimit int
	)
	recommendCmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest new connections for a club",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(configPath, dataPath, recommendClub, recommendLimit)
		},
	}
	recommendCmd.Flags().IntVar(&recommendClub, "club", 0, "Club id to recommend for")
	recommendCmd.Flags().IntVar(&recommendLimit, "limit", 5, "Maximum number of recommendations")
	_ = recommendCmd.MarkFlagRequired("club")

	var (
		exportFormat string
		exportOutput string
	)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the graph to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(configPath, dataPath, exportFormat, exportOutput)
		},
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format: json, csv, gexf, graphml, dot")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "Output file (default: stdout)")

	rootCmd.AddCommand(serveCmd, analyzeCmd, pathCmd, recommendCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it is
// missing. The --data flag overrides the file source directory.
func loadConfig(configPath, dataPath string) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = config.Default()
	}
	if dataPath != "" {
		cfg.Source.Kind = "file"
		cfg.Source.Path = dataPath
	}
	return cfg
}

// buildEngine wires source -> loader -> engine and performs the first
// load. The returned file source is non-nil only for the file kind, so
// the caller can start watching.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, *source.FileSource, error) {
	var (
		src     source.Source
		fileSrc *source.FileSource
		err     error
	)
	switch cfg.Source.Kind {
	case "neo4j":
		src, err = source.NewNeo4jSource(ctx, cfg.Source.URI, cfg.Source.Username, cfg.Source.Password)
	case "memory":
		src = source.NewMemorySource(nil, nil)
	default:
		fileSrc, err = source.NewFileSource(cfg.Source.Path, logger)
		src = fileSrc
	}
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s source: %w", cfg.Source.Kind, err)
	}

	eng := engine.New(source.NewLoader(src, logger), engine.Config{
		Logger: logger,
		Render: render.Config{
			CullingThreshold: cfg.Render.CullingThreshold,
			MaxVisibleNodes:  cfg.Render.MaxVisibleNodes,
			LowEndDevice:     cfg.Render.LowEndDevice,
			LowPowerMode:     cfg.Render.LowPowerMode,
		},
	})

	if cfg.Render.Mode != "" {
		if err := eng.SetPerformanceMode(cfg.Render.Mode); err != nil {
			logger.Warn("ignoring configured render mode", "mode", cfg.Render.Mode, "error", err)
		}
	}

	if err := eng.Reload(ctx, false); err != nil {
		// Serve an empty graph rather than refusing to start; a reload
		// can be triggered once the source recovers.
		logger.Error("initial load failed", "error", err)
	}
	return eng, fileSrc, nil
}

// clubLabel renders a club as "Name (#id)", or "#id" when the id is
// not in the snapshot.
func clubLabel(snap *graph.Snapshot, id int) string {
	if n, ok := snap.Node(id); ok {
		return fmt.Sprintf("%s (#%d)", n.Label, id)
	}
	return fmt.Sprintf("#%d", id)
}

func runServe(configPath, dataPath string) error {
	cfg := loadConfig(configPath, dataPath)
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Audit.Enabled {
		if err := observability.InitGlobalAuditLogger(&observability.AuditConfig{
			Enabled:    true,
			OutputPath: cfg.Audit.Path,
		}); err != nil {
			return fmt.Errorf("init audit log: %w", err)
		}
	}

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:  "clubgraph",
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		Environment:  cfg.Tracing.Environment,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	eng, fileSrc, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	eng.Start(ctx)

	if fileSrc != nil && cfg.Source.Watch {
		if err := fileSrc.Watch(ctx, func() {
			if err := eng.Reload(ctx, true); err != nil {
				logger.Error("reload after file change failed", "error", err)
			}
		}); err != nil {
			logger.Warn("file watching unavailable", "error", err)
		}
	}

	vizServer := viz.NewServer(&viz.Config{ListenAddr: cfg.Server.ListenAddr}, eng, logger)
	go func() {
		if err := vizServer.Start(); err != nil {
			logger.Error("visualization server stopped", "error", err)
		}
	}()

	graceful := server.NewGracefulServer(&server.HealthConfig{Version: "0.1.0"}, nil)
	graceful.Health.RegisterCheck("graph", server.GraphHealthChecker(func() int {
		return eng.Snapshot().Meta.TotalNodes
	}))
	graceful.Health.RegisterCheck("render", server.RenderHealthChecker(eng.FPS, 30))
	graceful.RegisterHook("viz-server", 10, vizServer.Stop)
	graceful.RegisterHook("engine", 20, eng.Stop)
	graceful.RegisterHook("tracing", 80, tp.Shutdown)
	if err := graceful.Start(cfg.Server.HealthAddr); err != nil {
		return err
	}

	logger.Info("clubgraph serving",
		"api", cfg.Server.ListenAddr,
		"health", cfg.Server.HealthAddr,
		"source", cfg.Source.Kind,
		"nodes", eng.Snapshot().Meta.TotalNodes,
	)

	graceful.Wait()
	return nil
}

func runAnalyze(configPath, dataPath string) error {
	cfg := loadConfig(configPath, dataPath)
	logger := logging.New(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	eng, _, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Stop(ctx)

	report := eng.Analyze(ctx)
	meta := eng.Snapshot().Meta

	fmt.Printf("Graph: %d clubs, %d connections, %d components\n",
		meta.TotalNodes, meta.TotalEdges, meta.Components)
	fmt.Printf("Communities: %d\n\n", len(report.Communities))

	fmt.Println("Most connected clubs:")
	for i, s := range report.TopByDegree {
		fmt.Printf("  %2d. #%-5d degree=%.0f\n", i+1, s.ID, s.Score)
	}
	fmt.Println("\nBridging clubs (betweenness, approximate):")
	for i, s := range report.TopByBetweenness {
		fmt.Printf("  %2d. #%-5d score=%.3f\n", i+1, s.ID, s.Score)
	}
	return nil
}

func runPath(configPath, dataPath string, from, to int) error {
	cfg := loadConfig(configPath, dataPath)
	logger := logging.New(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	eng, _, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Stop(ctx)

	p := eng.FindPath(ctx, from, to)
	if !p.Exists {
		return fmt.Errorf("no path between %d and %d", from, to)
	}

	steps := make([]string, len(p.Nodes))
	snap := eng.Snapshot()
	for i, id := range p.Nodes {
		steps[i] = clubLabel(snap, id)
	}
	fmt.Printf("%s\n", strings.Join(steps, " -> "))
	fmt.Printf("%d hops, cost %.1f\n", len(p.Nodes)-1, p.Cost)
	return nil
}

func runRecommend(configPath, dataPath string, club, limit int) error {
	cfg := loadConfig(configPath, dataPath)
	logger := logging.New(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	eng, _, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Stop(ctx)

	recs := eng.Recommend(ctx, club, limit)
	if len(recs) == 0 {
		fmt.Printf("No recommendations for club #%d\n", club)
		return nil
	}

	snap := eng.Snapshot()
	for i, rec := range recs {
		fmt.Printf("%2d. %-30s score=%.2f  suggest %s/%s\n",
			i+1, clubLabel(snap, rec.TargetID), rec.Score, rec.SuggestedType, rec.SuggestedStrength)
		for _, reason := range rec.Reasons {
			fmt.Printf("      - %s\n", reason)
		}
	}
	return nil
}

func runExport(configPath, dataPath, formatName, output string) error {
	cfg := loadConfig(configPath, dataPath)
	logger := logging.New(cfg.Log)

	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	eng, _, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Stop(ctx)

	data, err := eng.Export(ctx, format)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Printf("Wrote %d bytes to %s\n", len(data), output)
	return nil
}
