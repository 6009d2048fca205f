// Package main is the entry point for towerd, the SpDrL20 interlocking core.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vvmev/spdrl20-core/internal/audit"
	"github.com/vvmev/spdrl20-core/internal/bus"
	"github.com/vvmev/spdrl20-core/internal/buildinfo"
	"github.com/vvmev/spdrl20-core/internal/config"
	"github.com/vvmev/spdrl20-core/internal/obsmetrics"
	"github.com/vvmev/spdrl20-core/internal/spdrl20"
	"github.com/vvmev/spdrl20-core/internal/towerid"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "serve":
			runServe(logger, *configPath)
		case "version":
			fmt.Println(buildinfo.String())
			for k, v := range buildinfo.BuildInfo() {
				fmt.Printf("  %-12s %s\n", k+":", v)
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
			os.Exit(1)
		}
		return
	}

	fmt.Println("towerd - SpDrL20 relay interlocking core")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the interlocking, connect to the broker, and dispatch")
	fmt.Println("  version  Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func runServe(logger *slog.Logger, configPath string) {
	logger.Info("starting towerd", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "branch", buildinfo.GitBranch, "built", buildinfo.BuildTime)

	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			logger.Error("invalid log_level in config", "error", err)
			os.Exit(1)
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	logger.Info("config loaded", "path", cfgPath, "station", cfg.Station, "broker", cfg.MQTT.Broker)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	instanceID, err := towerid.LoadOrCreateInstanceID(cfg.DataDir)
	if err != nil {
		logger.Error("failed to load instance id", "error", err)
		os.Exit(1)
	}
	logger.Info("tower instance", "id", instanceID)

	var auditStore *audit.Store
	if cfg.Audit.Enabled {
		auditStore, err = audit.Open(cfg.Audit.Path, logger)
		if err != nil {
			logger.Error("failed to open audit store", "path", cfg.Audit.Path, "error", err)
			os.Exit(1)
		}
		defer auditStore.Close()
		logger.Info("audit log enabled", "path", cfg.Audit.Path)
	}

	metrics := obsmetrics.New()

	clientID := cfg.MQTT.ClientIDPrefix + "-" + instanceID
	dispatcher := bus.NewDispatcher(cfg.MQTT, clientID, logger)

	tower := spdrl20.NewTower(cfg.Station, cfg, dispatcher, logger)
	buildDemoTopology(tower)

	tower.OnElementUpdate(func(kind, name, value string) {
		metrics.ElementUpdates.WithLabelValues(kind).Inc()
		if auditStore != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := auditStore.RecordEvent(ctx, cfg.Station, instanceID, kind, name, value); err != nil {
				logger.Warn("audit record failed", "kind", kind, "name", name, "error", err)
			}
		}
	})
	tower.OnRouteLockChange(func(name string, locked bool) {
		state := "unlocked"
		if locked {
			state = "locked"
			metrics.RoutesArmed.Inc()
		} else {
			metrics.RoutesArmed.Dec()
		}
		metrics.RouteStateTotal.WithLabelValues(name, state).Inc()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsSrv *obsmetrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = obsmetrics.NewServer(cfg.Metrics.Address, metrics, func() obsmetrics.Status {
			return obsmetrics.Status{
				Station:       cfg.Station,
				Uptime:        buildinfo.Uptime(),
				MQTTConnected: dispatcher.Connected(),
				RoutesArmed:   tower.ArmedRouteCount(),
			}
		})
		go func() {
			if err := metricsSrv.Run(ctx); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		logger.Info("metrics server listening", "address", cfg.Metrics.Address)
	}

	if err := tower.Run(ctx); err != nil {
		logger.Error("tower stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("towerd shut down")
}

// buildDemoTopology wires a small station matching spec.md §8's seed
// scenarios: home signals P1/p3 with a distant signal ahead of P1, a
// turnout-selected distant signal, and a route from P1 to p3 over turnouts
// W1/W2 and track 1-1. Trackside topology is deliberately a Go literal here
// rather than a config format (spec.md §1 Non-goals, SPEC_FULL.md §2): this
// simulator's "plant" is fixed, not operator-configurable.
func buildDemoTopology(tower *spdrl20.Tower) {
	tower.AddSignal("P1").AddHome()
	tower.AddSignal("p3").AddHome()
	tower.AddSignal("G").AddHome()

	w1 := tower.AddTurnout("W1")
	w2 := tower.AddTurnout("W2")
	tower.AddTurnout("W9")

	track := tower.AddTrack("1-1")

	if _, err := tower.AddDistantSignal("vP1", "P1", ""); err != nil {
		panic(fmt.Sprintf("towerd: demo topology: %v", err))
	}
	if _, err := tower.AddDistantSignalSelected("vW1", "W1", "P1", "p3", "G"); err != nil {
		panic(fmt.Sprintf("towerd: demo topology: %v", err))
	}

	tower.AddBlockEnd("ABE", "neighbor/blockstart", "neighbor/release")
	tower.AddBlockStart("ABS", "neighbor/blockend", "neighbor/blockingtrack")

	route, err := tower.AddRoute("P1", "p3", "1-1")
	if err != nil {
		panic(fmt.Sprintf("towerd: demo topology: %v", err))
	}
	route.AddTurnout(w1, true)
	route.AddTurnout(w2, true)
	route.AddTrack(track)
}
