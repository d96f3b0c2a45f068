package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"

	"hcswell/internal/logger"
	"hcswell/pkg/assembly"
	"hcswell/pkg/config"
	"hcswell/pkg/source"
	"hcswell/pkg/visualization"
	"hcswell/pkg/well"
)

func main() {
	// Parse command line arguments; set flags override the config file
	configPath := flag.String("config", "hcswell.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	manifestPath := flag.String("manifest", "", "YAML manifest listing the plate's images")
	outputDir := flag.String("output", "", "Directory for per-well results")
	numCores := flag.Int("cores", 0, "Number of wells built in parallel (default: all CPUs)")
	mode := flag.String("mode", "", "Image mode: 2d or 3d")
	strategy := flag.String("assembly", "", "Assembly strategy: grid or stage-position")
	method := flag.String("projection", "", "Project z-stacks in 2d mode: Maximum or \"Best Focus\"")
	channels := flag.String("channels", "", "Comma-separated channels in output order")
	flag.Parse()

	if *initConfig {
		if err := writeDefaultConfig(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *manifestPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, *outputDir, *numCores, *mode, *strategy, *method, *channels)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.Output.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, *manifestPath, zl); err != nil {
		zl.Fatal("assembly failed", zap.Error(err))
	}
}

// writeDefaultConfig writes the defaults, refusing to replace an existing file
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return config.CreateDefaultConfigFile(path)
}

func applyFlags(cfg *config.Config, outputDir string, numCores int, mode, strategy, method, channels string) {
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if numCores > 0 {
		cfg.Processing.NumCores = numCores
	}
	if mode != "" {
		cfg.Processing.Mode = mode
	}
	if strategy != "" {
		cfg.Processing.Assembly = strategy
	}
	if method != "" {
		cfg.Processing.Projection = method
	}
	if channels != "" {
		cfg.Processing.Channels = strings.Split(channels, ",")
	}
}

func run(cfg *config.Config, manifestPath string, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	records, err := source.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	strategy, err := assembly.Lookup(cfg.Processing.Assembly)
	if err != nil {
		return err
	}
	opts := []well.Option{well.WithLogger(zl)}
	m, err := cfg.ProjectionMethod()
	if err != nil {
		return err
	}
	if m != 0 {
		opts = append(opts, well.WithProjection(m))
	}
	builder := well.NewBuilder(source.NewTIFFSource(manifestPath), opts...)

	zl.Info("assembling plate",
		zap.String("manifest", manifestPath),
		zap.Int("images", len(records)),
		zap.String("mode", cfg.Processing.Mode),
		zap.String("assembly", strategy.Name),
		zap.Strings("channels", cfg.Processing.Channels),
		zap.Int("cores", cfg.Processing.NumCores))

	start := time.Now()
	results, err := well.BuildPlate(ctx, builder, records, well.PlateOptions{
		Channels: cfg.Processing.Channels,
		Strategy: strategy,
		ZStack:   cfg.Processing.Mode == config.Mode3D,
		NumCores: cfg.Processing.NumCores,
	})
	if err != nil {
		return err
	}

	for _, res := range results {
		if err := visualization.WriteResult(cfg.Output.Dir, res, cfg.Processing.Channels, cfg.Output.SavePlanes); err != nil {
			return fmt.Errorf("well %s: %w", res.Well, err)
		}
	}

	zl.Info("plate assembled",
		zap.Int("wells", len(results)),
		zap.String("output", cfg.Output.Dir),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
