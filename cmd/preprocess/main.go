package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"offline_router/pkg/ch"
	"offline_router/pkg/config"
	"offline_router/pkg/graph"
	"offline_router/pkg/logging"
	osmparser "offline_router/pkg/osm"
	"offline_router/pkg/store"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "", "Output graph file path (default: graph.location from config)")
	configPath := flag.String("config", "", "Path to YAML config file")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 48.3,8.9,49.0,9.6)")
	coreFraction := flag.Float64("core-fraction", 0, "Share of nodes left uncontracted (default: build.core-fraction from config)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output graph.ch] [--config config.yml] [--bbox minLat,minLng,maxLat,maxLng] [--core-fraction 0.02]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *output != "" {
		cfg.Graph.Location = *output
	}
	if cfg.Graph.Location == "" {
		cfg.Graph.Location = "graph.ch"
	}
	if *coreFraction > 0 {
		cfg.Build.CoreFraction = *coreFraction
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var opts osmparser.ParseOptions
	opts.Logger = logger
	if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			logger.Fatal("invalid bbox format (expected minLat,minLng,maxLat,maxLng)", zap.Error(err))
		}
		opts.BBox = osmparser.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
		logger.Info("using bounding box filter",
			zap.Float64("min_lat", minLat), zap.Float64("max_lat", maxLat),
			zap.Float64("min_lng", minLng), zap.Float64("max_lng", maxLng))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger, *input, cfg, opts); err != nil {
		logger.Fatal("preprocessing failed", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, input string, cfg config.Config, opts osmparser.ParseOptions) error {
	start := time.Now()

	// Step 1: Parse OSM data.
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	logger.Info("parsing OSM data", zap.String("input", input))
	parsed, err := osmparser.Parse(ctx, f, opts)
	if err != nil {
		return err
	}
	logger.Info("parsed", zap.Int("edges", len(parsed.Edges)), zap.Int("nodes", len(parsed.Nodes)))

	// Step 2: Build graph.
	g := graph.Build(parsed)
	logger.Info("built graph", zap.Int("nodes", g.NodeCount()), zap.Int("edges", g.EdgeCount()))

	// Step 3: Extract largest connected component.
	nodes := graph.LargestComponent(g)
	if g.NodeCount() > 0 {
		logger.Info("largest component",
			zap.Int("nodes", len(nodes)),
			zap.Float64("percent", float64(len(nodes))/float64(g.NodeCount())*100))
	}
	g = graph.FilterToComponent(g, nodes)
	logger.Info("filtered graph", zap.Int("nodes", g.NodeCount()), zap.Int("edges", g.EdgeCount()))

	// Step 4: Contract, leaving the core uncontracted.
	coreSize := int(math.Ceil(cfg.Build.CoreFraction * float64(g.NodeCount())))
	h, err := ch.Contract(ctx, g, ch.Options{CoreSize: coreSize, Logger: logger})
	if err != nil {
		return err
	}

	// Step 5: Lay out and write the graph file.
	d, err := store.Assemble(g, h, store.AssembleOptions{CellSizeE7: cfg.Build.CellSizeE7})
	if err != nil {
		return err
	}
	logger.Info("writing graph file",
		zap.String("output", cfg.Graph.Location),
		zap.Int("core_nodes", d.NumCore),
		zap.Int("edges", len(d.Edges)),
		zap.Int("shortcuts", h.Shortcuts()))
	if err := store.Write(cfg.Graph.Location, d); err != nil {
		return err
	}

	// Step 6: Read it back.
	s, err := store.Open(cfg.Graph.Location, store.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Verify(); err != nil {
		return err
	}

	info, err := os.Stat(cfg.Graph.Location)
	if err != nil {
		return err
	}
	logger.Info("done",
		zap.Duration("elapsed", time.Since(start).Round(time.Second)),
		zap.String("output", cfg.Graph.Location),
		zap.Float64("size_mb", float64(info.Size())/(1024*1024)))
	return nil
}
