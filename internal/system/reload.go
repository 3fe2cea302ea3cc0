package system

import (
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/data"
	"go.uber.org/zap"
)

// Poller reports pending file changes without blocking.
// config.FileWatcher satisfies it.
type Poller interface {
	Poll() bool
}

// BucketReload re-applies the bucket table on the frame goroutine whenever
// its watcher reports an edit. A table that fails to load is ignored and
// the scheduler keeps its current layout.
type BucketReload struct {
	watch    Poller
	path     string
	sched    *coresys.Scheduler
	log      *zap.Logger
	reloads  int
	failures int
}

func NewBucketReload(watch Poller, path string, sched *coresys.Scheduler, log *zap.Logger) *BucketReload {
	if log == nil {
		log = zap.NewNop()
	}
	return &BucketReload{watch: watch, path: path, sched: sched, log: log}
}

func (r *BucketReload) Update(_ coresys.Frame) {
	if !r.watch.Poll() {
		return
	}
	tbl, err := data.LoadBucketTable(r.path)
	if err == nil {
		err = tbl.Apply(r.sched)
	}
	if err != nil {
		r.failures++
		r.log.Warn("bucket table reload failed", zap.String("path", r.path), zap.Error(err))
		return
	}
	r.reloads++
	r.log.Info("bucket table reloaded", zap.String("path", r.path), zap.Int("buckets", tbl.Count()))
}

func (r *BucketReload) Reloads() int  { return r.reloads }
func (r *BucketReload) Failures() int { return r.failures }
