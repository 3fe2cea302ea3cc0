package system

import (
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/state"
	"github.com/l1jgo/simcore/internal/core/value"
	"go.uber.org/zap"
)

// StateTopicPrefix starts every topic published by StateBridge.
const StateTopicPrefix = "state"

// StateChange is the payload StateBridge emits.
type StateChange struct {
	Path     string `json:"path"`
	NewValue any    `json:"value"`
	OldValue any    `json:"old"`
}

// Clone deep-copies the carried values so bus history and the outbound
// queue never alias the store.
func (c StateChange) Clone() any {
	return StateChange{Path: c.Path, NewValue: value.Clone(c.NewValue), OldValue: value.Clone(c.OldValue)}
}

// StateBridge republishes store changes under a subtree as bus events on
// "state.<changed path>", so listeners can use patterns like "state.player.*"
// without holding the store.
type StateBridge struct {
	sub *state.Subscription
}

// BridgeState starts forwarding changes at or below root. Paths whose keys
// are not valid topic segments are logged and skipped.
func BridgeState(store *state.Store, bus *event.Bus, root state.Path, log *zap.Logger) (*StateBridge, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sub, err := store.Subscribe(root, func(newValue, oldValue any, changed state.Path) {
		name := StateTopicPrefix
		if !changed.IsRoot() {
			name += event.Separator + changed.String()
		}
		t, err := event.ParseTopic(name)
		if err == nil && t.IsPattern() {
			err = event.ErrInvalidTopic
		}
		if err != nil {
			log.Warn("state change not bridged", zap.String("path", changed.String()), zap.Error(err))
			return
		}
		bus.Emit(t, StateChange{Path: changed.String(), NewValue: newValue, OldValue: oldValue})
	})
	if err != nil {
		return nil, err
	}
	return &StateBridge{sub: sub}, nil
}

// Close stops forwarding. Safe to call twice.
func (b *StateBridge) Close() { b.sub.Cancel() }
