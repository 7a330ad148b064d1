// Package nativetest provides a state-backed harness for engine tests.
package nativetest

import (
	"testing"
	"time"

	"ideacapital/core/state"
	"ideacapital/core/types"
	"ideacapital/storage"
)

// Genesis is the default harness clock start.
var Genesis = time.Unix(1_700_000_000, 0).UTC()

// Harness runs engine calls inside committed state updates and keeps the
// events they produced.
type Harness struct {
	T         *testing.T
	Mgr       *state.Manager
	Committed []*types.Event
	now       time.Time
}

// New returns a harness over in-memory storage.
func New(t *testing.T) *Harness {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	h := &Harness{T: t, Mgr: state.NewManager(db), now: Genesis}
	h.Mgr.SetNowFunc(h.Now)
	return h
}

// Now is the harness clock; pass it to SetNowFunc.
func (h *Harness) Now() time.Time { return h.now }

// Advance moves the clock forward.
func (h *Harness) Advance(d time.Duration) { h.now = h.now.Add(d) }

// Update runs fn in a state update and records the committed events.
func (h *Harness) Update(fn func(tx *state.Tx) error) error {
	records, err := h.Mgr.Update(fn)
	if err != nil {
		return err
	}
	for _, rec := range records {
		h.Committed = append(h.Committed, rec.Event)
	}
	return nil
}

// Types lists committed event types in order.
func (h *Harness) Types() []string {
	out := make([]string, 0, len(h.Committed))
	for _, evt := range h.Committed {
		out = append(out, evt.Type)
	}
	return out
}

// Last returns the most recent committed event of the given type.
func (h *Harness) Last(eventType string) *types.Event {
	for i := len(h.Committed) - 1; i >= 0; i-- {
		if h.Committed[i].Type == eventType {
			return h.Committed[i]
		}
	}
	return nil
}

// Reset forgets previously committed events.
func (h *Harness) Reset() { h.Committed = nil }
