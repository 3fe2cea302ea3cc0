package event

// StartReplay queues events for re-emission, one per ProcessReplay call.
// Any replay already in progress is discarded.
func (b *Bus) StartReplay(events []Event) {
	b.replay = make([]Event, len(events))
	copy(b.replay, events)
	b.replayPos = 0
	if len(b.replay) == 0 {
		b.StopReplay()
	}
}

// ProcessReplay re-emits the next recorded event and reports whether more
// remain. The replay stops and clears itself once the last event is sent.
func (b *Bus) ProcessReplay() bool {
	if b.replayPos >= len(b.replay) {
		b.StopReplay()
		return false
	}
	ev := b.replay[b.replayPos]
	b.replayPos++
	b.Emit(ev.Topic, ev.Payload)
	if b.replayPos >= len(b.replay) {
		b.StopReplay()
		return false
	}
	return true
}

func (b *Bus) StopReplay() {
	b.replay = nil
	b.replayPos = 0
}

// Replaying reports whether a replay has events left.
func (b *Bus) Replaying() bool {
	return b.replayPos < len(b.replay)
}

// ReplayRemaining returns how many events the active replay has left.
func (b *Bus) ReplayRemaining() int {
	return len(b.replay) - b.replayPos
}
