package tracelog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/tracescope/internal/action"
	"github.com/roach88/tracescope/internal/canon"
)

// Correlated is implemented by payloads that belong to a keyed flow, such as
// a navigation.
type Correlated interface {
	CorrelationKey() string
}

// Recorder writes every action dispatched on a bus to a Log. Records are
// numbered by a logical sequence that continues the log's own.
//
// Thread-safety: safe for concurrent use.
type Recorder struct {
	log *Log
	seq atomic.Int64
	ctx context.Context
}

// NewRecorder creates a recorder that resumes numbering after the log's
// highest seq.
func NewRecorder(ctx context.Context, log *Log) (*Recorder, error) {
	last, err := log.MaxSeq(ctx)
	if err != nil {
		return nil, err
	}
	r := &Recorder{log: log, ctx: ctx}
	r.seq.Store(last)
	return r, nil
}

// Attach starts recording actions dispatched on bus.
func (r *Recorder) Attach(bus *action.Actions) (detach func()) {
	return bus.Observe(r.Record)
}

// Record persists one action. Errors are returned to the bus, which reports
// them to the dispatcher; they never stop delivery to other subscribers.
func (r *Recorder) Record(a action.Action) error {
	payload, err := canon.Marshal(a.Payload)
	if err != nil {
		slog.Warn("action payload not encodable", "action", a.Key(), "error", err)
		payload = []byte(fmt.Sprintf("%q", fmt.Sprint(a.Payload)))
	}

	rec := Record{
		Seq:       r.seq.Add(1),
		Namespace: a.Namespace,
		Name:      a.Name,
		Payload:   string(payload),
	}
	if c, ok := a.Payload.(Correlated); ok {
		rec.Key = c.CorrelationKey()
	}

	if err := r.log.Write(r.ctx, rec); err != nil {
		slog.Error("trace write failed", "seq", rec.Seq, "action", a.Key(), "error", err)
		return err
	}
	return nil
}

// Seq returns the last sequence number handed out, or the log's highest seq
// if nothing has been recorded yet.
func (r *Recorder) Seq() int64 {
	return r.seq.Load()
}
