package main

import (
	"fmt"

	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/state"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/scripting"
	"github.com/l1jgo/simcore/internal/system"
	"go.uber.org/zap"
)

// kernel is everything the frame loop drives. Parts are built in dependency
// order and handed to each other explicitly.
type kernel struct {
	bus     *event.Bus
	store   *state.Store
	sched   *coresys.Scheduler
	control *coresys.Control
	scripts *scripting.Engine
	watch   *config.FileWatcher
	replay  *system.ReplayLoop
	journal *system.JournalLoop

	closers []func()
}

func busOptions(cfg config.BusConfig) []event.Option {
	var opts []event.Option
	if cfg.History {
		opts = append(opts, event.WithHistory(cfg.HistorySize))
	} else {
		opts = append(opts, event.WithoutHistory())
	}
	if cfg.Queue {
		opts = append(opts, event.WithQueue(cfg.QueueSize))
	}
	return opts
}

func storeOptions(cfg config.StateConfig) []state.Option {
	var opts []state.Option
	if cfg.History {
		opts = append(opts, state.WithHistory(cfg.HistorySize))
	} else {
		opts = append(opts, state.WithoutHistory())
	}
	if cfg.Validate {
		opts = append(opts, state.WithValidator(state.NewValidator(state.DefaultRules()...)))
	}
	return opts
}

// buildKernel wires bus, store and scheduler, lays out buckets, seeds state
// and loads scripts. The journal is attached separately by openJournal.
func buildKernel(cfg *config.Config, log *zap.Logger) (*kernel, error) {
	k := &kernel{
		bus:   event.NewBus(log.Named("bus"), busOptions(cfg.Bus)...),
		store: state.NewStore(log.Named("state"), storeOptions(cfg.State)...),
		sched: coresys.NewScheduler(log.Named("scheduler")),
	}

	if err := k.layoutBuckets(cfg.Scheduler, log); err != nil {
		k.close()
		return nil, err
	}

	if cfg.Kernel.StateSeed != "" {
		seed, err := data.LoadStateSeed(cfg.Kernel.StateSeed)
		if err != nil {
			k.close()
			return nil, err
		}
		if err := k.store.RestoreSnapshot(seed); err != nil {
			k.close()
			return nil, fmt.Errorf("seed state: %w", err)
		}
	}

	if cfg.Scheduler.Control {
		ctl, err := k.sched.BindControl(k.bus)
		if err != nil {
			k.close()
			return nil, err
		}
		k.control = ctl
		k.closers = append(k.closers, ctl.Close)
	}

	bridge, err := system.BridgeState(k.store, k.bus, state.Root, log.Named("bridge"))
	if err != nil {
		k.close()
		return nil, err
	}
	k.closers = append(k.closers, bridge.Close)

	if cfg.Scripting.Enabled {
		eng, err := scripting.NewEngine(cfg.Scripting.Dir, scripting.Deps{
			Bus:       k.bus,
			Store:     k.store,
			Scheduler: k.sched,
		}, log.Named("lua"))
		if err != nil {
			k.close()
			return nil, err
		}
		k.scripts = eng
		k.closers = append(k.closers, eng.Close)
	}
	return k, nil
}

// layoutBuckets applies the bucket table, or one bucket per phase when no
// table is configured, and optionally starts watching the table.
func (k *kernel) layoutBuckets(cfg config.SchedulerConfig, log *zap.Logger) error {
	if cfg.BucketTable == "" {
		return k.sched.AddPhaseBuckets()
	}
	tbl, err := data.LoadBucketTable(cfg.BucketTable)
	if err != nil {
		return err
	}
	if err := tbl.Apply(k.sched); err != nil {
		return fmt.Errorf("apply bucket table: %w", err)
	}
	if !cfg.WatchTable {
		return nil
	}

	w, err := config.WatchFile(cfg.BucketTable, log.Named("watch"))
	if err != nil {
		return err
	}
	k.watch = w
	k.closers = append(k.closers, func() { w.Close() })

	reload := system.NewBucketReload(w, cfg.BucketTable, k.sched, log.Named("reload"))
	if err := k.ensureBucket(coresys.PhaseInput); err != nil {
		return err
	}
	_, err = k.sched.AddLoop("bucket-reload", reload, coresys.PhaseInput.String(), coresys.WithPriority(0))
	return err
}

// ensureBucket adds the default bucket for p if the layout lacks it.
func (k *kernel) ensureBucket(p coresys.Phase) error {
	if k.sched.HasBucket(p.String()) {
		return nil
	}
	return k.sched.AddBucket(p.String(), coresys.WithBucketPriority(p.Priority()))
}

// close releases everything in reverse order of construction.
func (k *kernel) close() {
	for i := len(k.closers) - 1; i >= 0; i-- {
		k.closers[i]()
	}
	k.closers = nil
}
