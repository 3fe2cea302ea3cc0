package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/l1jgo/simcore/internal/config"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/persist"
	"github.com/l1jgo/simcore/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Environment and config
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) && cfgPath == config.DefaultPath {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Kernel.Name)

	// 3. Kernel
	printSection("kernel")
	k, err := buildKernel(cfg, log)
	if err != nil {
		return fmt.Errorf("build kernel: %w", err)
	}
	defer k.close()
	printStat("buckets", len(k.sched.Buckets()))
	printStat("state keys", len(k.store.Tree()))
	if k.scripts != nil {
		printOK(fmt.Sprintf("scripts loaded from %s", cfg.Scripting.Dir))
	}
	if k.watch != nil {
		printOK(fmt.Sprintf("watching %s", k.watch.Path()))
	}
	fmt.Println()

	// 4. Journal
	if cfg.Journal.Enabled {
		printSection("journal")
		db, err := openJournal(k, cfg.Journal, log)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer db.Close()
		printOK(fmt.Sprintf("session %s", k.journal.Session()))
		if k.replay != nil {
			printStat("replay events", k.bus.ReplayRemaining())
		}
		fmt.Println()
	}

	// 5. Frame loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Kernel.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("frame loop started (tick: %s)", cfg.Kernel.TickRate))
	fmt.Println()

	start := time.Now()
	last := start
	for {
		select {
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			k.sched.Run(dt, now.Sub(start), nil)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			if k.journal != nil {
				n := k.journal.Flush()
				log.Info("journal flushed", zap.Int("events", n), zap.Any("stats", k.journal.Stats()))
			}
			log.Info("kernel stopped",
				zap.Uint64("ticks", k.sched.Ticks()),
				zap.Uint64("callback_panics", k.sched.CallbackPanics()),
				zap.Uint64("emitted", k.bus.Stats().Emitted),
			)
			return nil
		}
	}
}

// openJournal connects, migrates, starts a session and registers the journal
// loop, plus the replay loop when a session to replay is configured.
func openJournal(k *kernel, cfg config.JournalConfig, log *zap.Logger) (*persist.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg, log.Named("db"))
	if err != nil {
		return nil, err
	}
	version, err := persist.RunMigrations(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	printOK(fmt.Sprintf("PostgreSQL connected, schema v%d", version))

	repo := persist.NewJournalRepo(db)
	recent, err := repo.Sessions(ctx, 5)
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, s := range recent {
		log.Info("journal session",
			zap.String("id", s.ID.String()),
			zap.String("name", s.Name),
			zap.Time("started", s.StartedAt),
			zap.Int64("events", s.Events),
		)
	}

	name := "live"
	if cfg.ReplaySession != "" {
		id, err := uuid.Parse(cfg.ReplaySession)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("replay session %q: %w", cfg.ReplaySession, err)
		}
		events, err := repo.LoadSession(ctx, id)
		if err != nil {
			db.Close()
			return nil, err
		}
		name = fmt.Sprintf("replay of %s (%d events)", id, len(events))
		k.replay = system.NewReplayLoop(k.bus, 1, log.Named("replay"))
		if err := k.ensureBucket(coresys.PhaseInput); err != nil {
			db.Close()
			return nil, err
		}
		if _, err := k.sched.AddLoop("replay", k.replay, coresys.PhaseInput.String(), coresys.WithPriority(10)); err != nil {
			db.Close()
			return nil, err
		}
		k.replay.Start(events)
	}

	session, err := repo.StartSession(ctx, name)
	if err != nil {
		db.Close()
		return nil, err
	}
	if !k.sched.HasBucket(cfg.Bucket) {
		if err := k.sched.AddBucket(cfg.Bucket, coresys.WithBucketPriority(coresys.PhasePersist.Priority())); err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := k.sched.SetFrequency(cfg.Bucket, cfg.Frequency); err != nil {
		db.Close()
		return nil, err
	}
	k.journal = system.NewJournalLoop(k.bus, repo, session, cfg.WriteTimeout, log.Named("journal"))
	if _, err := k.sched.AddLoop("journal", k.journal, cfg.Bucket); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
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
