package system

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/simcore/internal/core/event"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"go.uber.org/zap"
)

// Appender stores a batch of events for a session. persist.JournalRepo is
// the production implementation.
type Appender interface {
	Append(ctx context.Context, session uuid.UUID, events []event.Event) error
}

// JournalStats counts what the journal loop has done so far.
type JournalStats struct {
	Batches uint64
	Written uint64
	Dropped uint64 // events lost to failed writes
}

// JournalLoop drains the bus outbound queue into the journal. Register it in
// the persist bucket; the bucket frequency sets how often it flushes.
type JournalLoop struct {
	bus     *event.Bus
	repo    Appender
	session uuid.UUID
	timeout time.Duration
	log     *zap.Logger
	stats   JournalStats
}

func NewJournalLoop(bus *event.Bus, repo Appender, session uuid.UUID, timeout time.Duration, log *zap.Logger) *JournalLoop {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &JournalLoop{
		bus:     bus,
		repo:    repo,
		session: session,
		timeout: timeout,
		log:     log,
	}
}

func (j *JournalLoop) Update(_ coresys.Frame) {
	j.Flush()
}

// Flush writes everything queued so far and returns how many events were
// stored. A failed write drops the batch; the frame never waits longer than
// the write timeout.
func (j *JournalLoop) Flush() int {
	events := j.bus.DrainQueue()
	if len(events) == 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.stats.Batches++
	if err := j.repo.Append(ctx, j.session, events); err != nil {
		j.stats.Dropped += uint64(len(events))
		j.log.Error("journal write failed",
			zap.String("session", j.session.String()),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
		return 0
	}
	j.stats.Written += uint64(len(events))
	return len(events)
}

func (j *JournalLoop) Session() uuid.UUID  { return j.session }
func (j *JournalLoop) Stats() JournalStats { return j.stats }
