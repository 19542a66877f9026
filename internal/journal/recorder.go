package journal

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/jbweber/lvnode/internal/driver"
)

// Recorder writes lifecycle driver events to a Store. Listings are not
// journaled.
type Recorder struct {
	store *Store
	log   logr.Logger
}

var _ driver.Recorder = (*Recorder)(nil)

// NewRecorder returns a driver.Recorder backed by store.
func NewRecorder(store *Store, log logr.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record implements driver.Recorder. Write failures are logged and dropped.
// The write outlives cancellation of ctx: once the hypervisor has acted,
// the operation is journaled even if the caller has gone away.
func (r *Recorder) Record(ctx context.Context, ev driver.Event) {
	if ev.Operation == driver.OpList {
		return
	}

	e := Entry{
		Operation: string(ev.Operation),
		Success:   ev.Success,
		Duration:  ev.Duration,
	}
	if ev.Node != nil {
		e.NodeUUID = ev.Node.UUID
		e.NodeName = ev.Node.Name
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}

	if _, err := r.store.Add(context.WithoutCancel(ctx), e); err != nil {
		r.log.Error(err, "failed to journal operation", "operation", e.Operation, "uuid", e.NodeUUID)
	}
}
