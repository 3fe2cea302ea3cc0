package system

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

// DefaultPriority is the bucket and callback priority when none is given.
const DefaultPriority = 100

// Scheduler runs named buckets of per-frame callbacks. Buckets run in
// ascending priority order and so do the callbacks inside a bucket: lower
// numbers go first. The event bus uses the opposite convention for listeners.
//
// Not safe for concurrent use; the host calls Run from its frame goroutine.
type Scheduler struct {
	log     *zap.Logger
	buckets map[string]*bucket
	order   []*bucket
	sorted  bool
	paused  map[string]struct{}
	loops   map[string]*Handle
	enabled bool
	seq     uint64
	ticks   uint64
	panics  uint64
}

type bucket struct {
	name      string
	seq       uint64
	priority  int
	frequency float64
	every     uint64        // frequency < 1: run on every Nth frame
	interval  time.Duration // frequency > 1: fixed step
	enabled   bool
	removed   bool
	acc       time.Duration
	frames    uint64
	runs      uint64
	callbacks []*Handle
}

// Handle is a registered callback. Remove is idempotent.
type Handle struct {
	s        *Scheduler
	b        *bucket
	fn       Func
	priority int
	loop     string
	removed  bool
}

// Bucket returns the name of the bucket the callback was added to.
func (h *Handle) Bucket() string { return h.b.name }
func (h *Handle) Priority() int  { return h.priority }

// Active reports whether the callback is still registered.
func (h *Handle) Active() bool { return !h.removed && !h.b.removed }

// Remove unregisters the callback. A callback removed while its bucket is
// running is skipped for the rest of that run.
func (h *Handle) Remove() {
	if h.removed {
		return
	}
	h.removed = true
	cbs := h.b.callbacks
	for i, c := range cbs {
		if c == h {
			h.b.callbacks = append(cbs[:i:i], cbs[i+1:]...)
			break
		}
	}
	if h.loop != "" && h.s.loops[h.loop] == h {
		delete(h.s.loops, h.loop)
	}
}

// BucketOption configures AddBucket.
type BucketOption func(*bucket)

// WithFrequency sets runs per frame: 1 runs every frame, 0.25 every fourth
// frame, 120 runs with a fixed 1/120s step as often as accumulated time allows.
func WithFrequency(f float64) BucketOption {
	return func(b *bucket) { b.frequency = f }
}

func WithBucketPriority(p int) BucketOption {
	return func(b *bucket) { b.priority = p }
}

func WithEnabled(enabled bool) BucketOption {
	return func(b *bucket) { b.enabled = enabled }
}

// CallbackOption configures AddCallback and AddLoop.
type CallbackOption func(*Handle)

func WithPriority(p int) CallbackOption {
	return func(h *Handle) { h.priority = p }
}

// NewScheduler returns an enabled scheduler with no buckets.
func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		log:     log,
		buckets: make(map[string]*bucket, 8),
		order:   make([]*bucket, 0, 8),
		paused:  make(map[string]struct{}),
		loops:   make(map[string]*Handle),
		enabled: true,
	}
}

// AddPhaseBuckets adds one bucket per Phase, named and prioritised by it.
func (s *Scheduler) AddPhaseBuckets() error {
	for _, p := range Phases() {
		if err := s.AddBucket(p.String(), WithBucketPriority(p.Priority())); err != nil {
			return err
		}
	}
	return nil
}

// AddBucket registers a bucket. Defaults: frequency 1, priority 100, enabled.
func (s *Scheduler) AddBucket(name string, opts ...BucketOption) error {
	if name == "" {
		return ErrInvalidBucket
	}
	if _, ok := s.buckets[name]; ok {
		return fmt.Errorf("%w: %q", ErrBucketExists, name)
	}
	s.seq++
	b := &bucket{name: name, seq: s.seq, priority: DefaultPriority, frequency: 1, enabled: true}
	for _, o := range opts {
		o(b)
	}
	if err := b.setFrequency(b.frequency); err != nil {
		return fmt.Errorf("bucket %q: %w", name, err)
	}
	s.buckets[name] = b
	s.order = append(s.order, b)
	s.sorted = false
	return nil
}

// RemoveBucket drops a bucket with all its callbacks and loops.
func (s *Scheduler) RemoveBucket(name string) error {
	b, err := s.bucket(name)
	if err != nil {
		return err
	}
	b.removed = true
	for _, h := range b.callbacks {
		h.removed = true
		if h.loop != "" {
			delete(s.loops, h.loop)
		}
	}
	b.callbacks = nil
	delete(s.buckets, name)
	delete(s.paused, name)
	for i, o := range s.order {
		if o == b {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// HasBucket reports whether name is registered.
func (s *Scheduler) HasBucket(name string) bool {
	_, ok := s.buckets[name]
	return ok
}

// AddCallback adds fn to a bucket. Lower priority runs first; equal
// priorities keep registration order.
func (s *Scheduler) AddCallback(bucketName string, fn Func, opts ...CallbackOption) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	b, err := s.bucket(bucketName)
	if err != nil {
		return nil, err
	}
	h := &Handle{s: s, b: b, fn: fn, priority: DefaultPriority}
	for _, o := range opts {
		o(h)
	}
	i := sort.Search(len(b.callbacks), func(i int) bool { return b.callbacks[i].priority > h.priority })
	cbs := make([]*Handle, 0, len(b.callbacks)+1)
	cbs = append(cbs, b.callbacks[:i]...)
	cbs = append(cbs, h)
	b.callbacks = append(cbs, b.callbacks[i:]...)
	return h, nil
}

// AddLoop registers u.Update as a callback under a unique name.
func (s *Scheduler) AddLoop(name string, u Updater, bucketName string, opts ...CallbackOption) (*Handle, error) {
	if u == nil {
		return nil, ErrNilCallback
	}
	if _, ok := s.loops[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrLoopExists, name)
	}
	h, err := s.AddCallback(bucketName, u.Update, opts...)
	if err != nil {
		return nil, err
	}
	h.loop = name
	s.loops[name] = h
	return h, nil
}

// Loop returns the handle of a named loop.
func (s *Scheduler) Loop(name string) (*Handle, bool) {
	h, ok := s.loops[name]
	return h, ok
}

// RemoveLoop removes a named loop. Reports whether it existed.
func (s *Scheduler) RemoveLoop(name string) bool {
	h, ok := s.loops[name]
	if !ok {
		return false
	}
	h.Remove()
	return true
}

// Run executes one frame. dt is the time since the previous frame, elapsed
// the host's running clock; host is handed to every callback untouched.
func (s *Scheduler) Run(dt, elapsed time.Duration, host any) {
	if !s.enabled {
		return
	}
	s.ticks++
	s.ensureSorted()

	// buckets added by a callback start next frame
	order := make([]*bucket, len(s.order))
	copy(order, s.order)
	for _, b := range order {
		if b.removed || !b.enabled {
			continue
		}
		if _, ok := s.paused[b.name]; ok {
			continue
		}
		s.advance(b, dt, elapsed, host)
	}
}

func (s *Scheduler) advance(b *bucket, dt, elapsed time.Duration, host any) {
	switch {
	case b.frequency < 1:
		b.frames++
		if b.frames%b.every == 0 {
			s.execute(b, dt, elapsed, host)
		}
	case b.frequency > 1:
		b.acc += dt
		for b.acc >= b.interval && !b.removed {
			b.acc -= b.interval
			s.execute(b, b.interval, elapsed, host)
		}
	default:
		s.execute(b, dt, elapsed, host)
	}
}

func (s *Scheduler) execute(b *bucket, dt, elapsed time.Duration, host any) {
	b.runs++
	f := Frame{Delta: dt, Elapsed: elapsed, Tick: s.ticks, Bucket: b.name, Host: host}
	cbs := make([]*Handle, len(b.callbacks))
	copy(cbs, b.callbacks)
	for _, h := range cbs {
		if h.removed {
			continue
		}
		s.invoke(h, f)
	}
}

func (s *Scheduler) invoke(h *Handle, f Frame) {
	defer func() {
		if r := recover(); r != nil {
			s.panics++
			fields := []zap.Field{zap.String("bucket", f.Bucket), zap.Any("panic", r)}
			if h.loop != "" {
				fields = append(fields, zap.String("loop", h.loop))
			}
			s.log.Error("scheduler callback panicked", fields...)
		}
	}()
	h.fn(f)
}

func (s *Scheduler) ensureSorted() {
	if !s.sorted {
		sort.Slice(s.order, func(i, j int) bool {
			if s.order[i].priority != s.order[j].priority {
				return s.order[i].priority < s.order[j].priority
			}
			return s.order[i].seq < s.order[j].seq
		})
		s.sorted = true
	}
}

func (s *Scheduler) bucket(name string) (*bucket, error) {
	b, ok := s.buckets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBucket, name)
	}
	return b, nil
}

func (b *bucket) setFrequency(f float64) error {
	if !(f > 0) || math.IsInf(f, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, f)
	}
	b.frequency = f
	b.every, b.interval = 0, 0
	switch {
	case f < 1:
		// 1/(1/3.0) lands a hair above 3
		b.every = uint64(math.Ceil(1/f - 1e-9))
	case f > 1:
		b.interval = time.Duration(float64(time.Second) / f)
		if b.interval <= 0 {
			b.interval = 1
		}
	}
	return nil
}
