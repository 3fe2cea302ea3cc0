package system

import "time"

// Phase is a coarse slot in the frame. Each phase maps to a default bucket
// whose priority places it in frame order.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain input and network queues
	PhasePreUpdate               // 1: react to last frame's events
	PhaseUpdate                  // 2: simulation
	PhasePostUpdate              // 3: animation, audio-reactive effects
	PhaseOutput                  // 4: render-facing state, outbound events
	PhasePersist                 // 5: journal flush
	PhaseCleanup                 // 6: release finished work
)

var phaseNames = [...]string{"input", "preUpdate", "update", "postUpdate", "output", "persist", "cleanup"}

// String returns the default bucket name for p.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Priority returns the default bucket priority for p.
func (p Phase) Priority() int { return int(p) * 100 }

// Phases lists every phase in frame order.
func Phases() []Phase {
	return []Phase{PhaseInput, PhasePreUpdate, PhaseUpdate, PhasePostUpdate, PhaseOutput, PhasePersist, PhaseCleanup}
}

// Frame is what a callback sees on each execution. Delta is the outer frame
// delta for ordinary buckets and the fixed step (1/frequency) for buckets
// running faster than the frame rate.
type Frame struct {
	Delta   time.Duration
	Elapsed time.Duration
	Tick    uint64 // Run invocations so far, starting at 1
	Bucket  string
	Host    any // opaque value the host passes to Run
}

// Func is a per-frame callback.
type Func func(f Frame)

// Updater is anything with a per-frame Update; see Scheduler.AddLoop.
type Updater interface {
	Update(f Frame)
}

// UpdaterFunc adapts a function to Updater.
type UpdaterFunc func(f Frame)

func (fn UpdaterFunc) Update(f Frame) { fn(f) }
