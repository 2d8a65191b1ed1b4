package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/gamemanager/internal/bridge"
	"github.com/l1jgo/gamemanager/internal/config"
	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/clock"
	"github.com/l1jgo/gamemanager/internal/core/msg"
	coresys "github.com/l1jgo/gamemanager/internal/core/system"
	"github.com/l1jgo/gamemanager/internal/core/uid"
	"github.com/l1jgo/gamemanager/internal/data"
	"github.com/l1jgo/gamemanager/internal/gm"
	"github.com/l1jgo/gamemanager/internal/metrics"
	"github.com/l1jgo/gamemanager/internal/persist"
	"github.com/l1jgo/gamemanager/internal/scripting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(machine string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              gmhost  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       game manager actor runtime          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mmachine:\033[0m %s\n\n", machine)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(s string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", s)
}

func printReady(s string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", s)
}

// ── Host ───────────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/gmhost.toml"
	if p := os.Getenv("GMHOST_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	machine, err := newMachine(cfg.Machine)
	if err != nil {
		return err
	}
	printBanner(machine.String())

	runner := coresys.NewRunner()

	// 3. Journal database
	var (
		journal  *persist.Journal
		flushSys *persist.JournalFlushSystem
	)
	if cfg.Database.Enabled {
		printSection("journal")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		journal = persist.NewJournal(persist.NewJournalRepo(db), cfg.Database.JournalTicks, log)
		flushSys = persist.NewJournalFlushSystem(journal, cfg.Database.FlushEvery, log)
		fmt.Println()
	}

	// 4. Actor types and scripts
	printSection("data")
	types, err := data.LoadActorTypes(cfg.Data.ActorTypes)
	if err != nil {
		return fmt.Errorf("load actor types: %w", err)
	}
	lib := actor.NewLibrary()

	var (
		engine  *scripting.Engine
		watcher *scripting.Watcher
		ctor    actor.Constructor
	)
	if cfg.Scripting.Enabled {
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("load scripts: %w", err)
		}
		defer engine.Close()
		ctor = engine.Constructor()
		if cfg.Scripting.Watch {
			watcher, err = scripting.NewWatcher(cfg.Scripting.Dir, cfg.Scripting.Debounce, log)
			if err != nil {
				return fmt.Errorf("watch scripts: %w", err)
			}
			defer watcher.Close()
		}
	}
	if err := data.RegisterActorTypes(lib, types, ctor); err != nil {
		return fmt.Errorf("register actor types: %w", err)
	}
	printStat("actor types", lib.Count())
	if engine != nil {
		printStat("script behaviors", len(engine.Behaviors()))
	}
	fmt.Println()

	// 5. Metrics
	var gmMetrics gm.Metrics
	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		gmMetrics = metrics.NewGMMetrics(reg)
		metricsSrv = metrics.NewServer(cfg.Metrics.BindAddress, reg, log)
	}

	// 6. Game manager and components
	clk := clock.New()
	manager := gm.New(gm.Options{
		Machine:       machine,
		Library:       lib,
		Clock:         clk,
		Maps:          data.NewMapLoader(cfg.Data.MapsDir, lib, log),
		Metrics:       gmMetrics,
		StatsInterval: cfg.Frame.StatsInterval,
	}, log)
	if cfg.Frame.TimeScale != 1.0 {
		manager.ChangeTimeSettings(manager.SimulationTime(), cfg.Frame.TimeScale, manager.SimulationClockTime())
	}
	if engine != nil {
		engine.Bind(manager)
	}

	processor := gm.NewRemoteActorProcessor()
	processor.AcceptRequests = cfg.Machine.AcceptRemoteRequests
	if err := manager.AddComponent(processor, gm.PriorityHighest); err != nil {
		return err
	}
	if journal != nil {
		if err := manager.AddComponent(journal, gm.PriorityLowest); err != nil {
			return err
		}
	}

	// 7. Systems in phase order
	if watcher != nil {
		runner.Register(scripting.NewReloadSystem(engine, watcher))
	}
	if cfg.Bridge.Enabled {
		printSection("bridge")
		nc, err := bridge.Connect(cfg.Bridge.URL, machine.Name, log)
		if err != nil {
			return err
		}
		defer nc.Close()
		br := bridge.New(nc, bridge.Config{
			SubjectPrefix: cfg.Bridge.SubjectPrefix,
			InboundBuffer: cfg.Bridge.InboundBuffer,
			MaxPerTick:    cfg.Bridge.MaxPerTick,
		}, log)
		sub, err := br.Subscribe(nc)
		if err != nil {
			return err
		}
		defer sub.Unsubscribe()
		if err := manager.AddComponent(br, gm.PriorityNormal); err != nil {
			return err
		}
		runner.Register(bridge.NewInboundSystem(br, manager))
		runner.Register(coresys.Func{P: coresys.PhaseOutput, Fn: func(time.Duration) {
			if err := nc.FlushTimeout(cfg.Bridge.FlushTimeout); err != nil {
				log.Warn("nats flush", zap.Error(err))
			}
		}})
		printOK("NATS connected, subject " + br.Subject())
		fmt.Println()
	}
	runner.Register(gm.NewFrameSystem(manager, clk))
	if flushSys != nil {
		runner.Register(flushSys)
	}

	if cfg.Data.StartMap != "" {
		if err := manager.ChangeMap(cfg.Data.StartMap); err != nil {
			return fmt.Errorf("start map: %w", err)
		}
	}

	// 8. Start the frame loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	if metricsSrv != nil {
		metricsSrv.Start()
	}

	ticker := time.NewTicker(cfg.Frame.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printStat("systems", runner.Len())
	printReady(fmt.Sprintf("tick rate %s", cfg.Frame.TickRate))
	fmt.Println()
	log.Info("game manager running", zap.String("machine", machine.Name), zap.Duration("tick", cfg.Frame.TickRate))

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Frame.TickRate)

		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			manager.Shutdown()
			if flushSys != nil {
				flushSys.FlushNow()
			}
			if metricsSrv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = metricsSrv.Shutdown(ctx)
				cancel()
			}
			st := manager.Stats()
			log.Info("game manager stopped",
				zap.Uint64("frames", st.Frames),
				zap.Uint64("processed", st.MessagesProcessed),
				zap.Uint64("sent", st.MessagesSent))
			return nil
		}
	}
}

func newMachine(cfg config.MachineConfig) (*msg.MachineInfo, error) {
	host, _ := os.Hostname()
	m := msg.NewMachineInfo(cfg.Name, host)
	if cfg.ID != "" {
		id, err := uid.Parse(cfg.ID)
		if err != nil {
			return nil, fmt.Errorf("machine id: %w", err)
		}
		m.ID = id
	}
	return m, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
