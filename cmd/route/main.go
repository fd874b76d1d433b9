package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"offline_router/pkg/config"
	"offline_router/pkg/geo"
	"offline_router/pkg/graph"
	"offline_router/pkg/logging"
	"offline_router/pkg/metrics"
	"offline_router/pkg/routing"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	graphPath := flag.String("graph", "", "Path to graph file (default: graph.location from config)")
	from := flag.String("from", "", "Start position: lat,lon")
	to := flag.String("to", "", "Destination position: lat,lon")
	nearest := flag.String("nearest", "", "Print the node nearest to lat,lon")
	sample := flag.String("sample", "", "Route on a YAML sample graph instead of the graph file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *graphPath != "" {
		cfg.Graph.Location = *graphPath
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cfg.EngineOptions()
	opts.Logger = logger
	var engine *routing.Engine
	if cfg.Graph.Location != "" {
		engine = routing.NewEngine(cfg.Graph.Location, nil, opts)
	}

	// Queries run off the main goroutine so an interrupt is reported as a
	// cancelled outcome rather than killing the process mid-read.
	done := make(chan error, 1)
	go func() {
		switch {
		case *sample != "":
			done <- runSample(ctx, engine, *sample)
		case *nearest != "":
			done <- runNearest(ctx, engine, *nearest)
		case *from != "" && *to != "":
			done <- runRoute(ctx, engine, *from, *to)
		default:
			done <- errUsage
		}
	}()
	err = <-done

	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, "Usage: route [--config config.yml] [--graph graph.ch] (--from lat,lon --to lat,lon | --nearest lat,lon | --sample sample.yml)")
		os.Exit(2)
	}
	if mErr := metrics.Log(logger); mErr != nil {
		logger.Warn("failed to gather metrics", zap.Error(mErr))
	}
	if err != nil {
		logger.Error("query failed",
			zap.Stringer("outcome", routing.Classify(err)),
			zap.Error(err))
		os.Exit(1)
	}
}

var (
	errUsage   = errors.New("usage")
	errNoGraph = errors.New("no graph file configured (set --graph, graph.location or " + config.EnvLocation + ")")
)

func parsePosition(s string) (geo.Position, error) {
	var lat, lon float64
	if _, err := fmt.Sscanf(s, "%f,%f", &lat, &lon); err != nil {
		return geo.Position{}, errors.Wrapf(err, "invalid position %q (expected lat,lon)", s)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return geo.Position{}, errors.Errorf("position %q out of range", s)
	}
	return geo.FromDegrees(lat, lon), nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runRoute(ctx context.Context, engine *routing.Engine, from, to string) error {
	if engine == nil {
		return errNoGraph
	}
	start, err := parsePosition(from)
	if err != nil {
		return err
	}
	dest, err := parsePosition(to)
	if err != nil {
		return err
	}
	res, err := engine.Route(ctx, start, dest)
	if err != nil {
		return err
	}
	return writeJSON(routeCollection(res))
}

func runNearest(ctx context.Context, engine *routing.Engine, at string) error {
	if engine == nil {
		return errNoGraph
	}
	p, err := parsePosition(at)
	if err != nil {
		return err
	}
	node, pos, err := engine.Nearest(ctx, p)
	if err != nil {
		return err
	}
	return writeJSON(nearestFeature(node, pos))
}

func runSample(ctx context.Context, engine *routing.Engine, path string) error {
	var parent graph.Graph
	if engine != nil {
		core, err := engine.Core(ctx)
		if err != nil {
			return err
		}
		parent = core
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	s, err := graph.ReadSample(f, parent)
	if err != nil {
		return err
	}
	p, err := routing.RouteSample(ctx, s)
	if err != nil {
		return err
	}
	return writeJSON(struct {
		Nodes  []int32 `json:"nodes"`
		Edges  []int32 `json:"edges"`
		Length int64   `json:"length"`
	}{p.Nodes, p.Edges, p.Length})
}
