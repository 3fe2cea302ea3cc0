package system

import (
	"github.com/l1jgo/simcore/internal/core/event"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"go.uber.org/zap"
)

// ReplayLoop feeds a bus replay back into the frame, perTick events per run.
type ReplayLoop struct {
	bus      *event.Bus
	perTick  int
	log      *zap.Logger
	active   bool
	replayed uint64
}

func NewReplayLoop(bus *event.Bus, perTick int, log *zap.Logger) *ReplayLoop {
	if log == nil {
		log = zap.NewNop()
	}
	if perTick < 1 {
		perTick = 1
	}
	return &ReplayLoop{bus: bus, perTick: perTick, log: log}
}

// Start begins replaying events, replacing any replay in progress.
func (r *ReplayLoop) Start(events []event.Event) {
	r.bus.StartReplay(events)
	r.active = r.bus.Replaying()
	if r.active {
		r.log.Info("replay started", zap.Int("events", len(events)))
	}
}

func (r *ReplayLoop) Update(_ coresys.Frame) {
	if !r.active {
		return
	}
	for i := 0; i < r.perTick && r.bus.Replaying(); i++ {
		r.bus.ProcessReplay()
		r.replayed++
	}
	if !r.bus.Replaying() {
		r.active = false
		r.log.Info("replay finished", zap.Uint64("replayed", r.replayed))
	}
}

// Active reports whether events remain to be replayed.
func (r *ReplayLoop) Active() bool { return r.active && r.bus.Replaying() }

// Replayed returns how many events this loop has re-emitted.
func (r *ReplayLoop) Replayed() uint64 { return r.replayed }
