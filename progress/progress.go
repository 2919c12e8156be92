// Package progress defines the reporter and cancellation contracts
// shared by the pack, extract and modify pipelines. Rendering a bar or
// wiring a GUI callback is left to callers; this package only defines
// the seam and a couple of trivial implementations.
package progress

import "sync/atomic"

// Reporter receives progress notifications from a running pipeline.
// Implementations must be safe for concurrent use: the extract
// pipeline calls Update from multiple workers.
type Reporter interface {
	// Start is called once with the total unit count (bytes or
	// entries, pipeline-defined) and a human label for the operation.
	Start(total int64, label string)
	// Update reports an incremental delta of units completed.
	Update(delta int64)
	// SetMessage updates a short status string (e.g. the current path).
	SetMessage(msg string)
	// Finish is called exactly once when the pipeline completes,
	// successfully or not.
	Finish()
}

// Nop discards all progress notifications.
type Nop struct{}

func (Nop) Start(int64, string) {}
func (Nop) Update(int64)        {}
func (Nop) SetMessage(string)   {}
func (Nop) Finish()             {}

// Counters is a Reporter that accumulates atomic totals, matching the
// written/entries counter pair the teacher archiver exposed directly
// on its Extractor. Safe for concurrent use; callers typically wrap it
// to also drive a visible bar.
type Counters struct {
	total, done int64
	label       atomic.Value
	message     atomic.Value
}

func NewCounters() *Counters {
	c := &Counters{}
	c.label.Store("")
	c.message.Store("")
	return c
}

func (c *Counters) Start(total int64, label string) {
	atomic.StoreInt64(&c.total, total)
	atomic.StoreInt64(&c.done, 0)
	c.label.Store(label)
}

func (c *Counters) Update(delta int64) {
	atomic.AddInt64(&c.done, delta)
}

func (c *Counters) SetMessage(msg string) {
	c.message.Store(msg)
}

func (c *Counters) Finish() {}

// Progress returns the current (done, total) pair and the last status
// message. Safe to call while a pipeline is running.
func (c *Counters) Progress() (done, total int64, message string) {
	return atomic.LoadInt64(&c.done), atomic.LoadInt64(&c.total), c.message.Load().(string)
}
