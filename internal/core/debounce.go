package core

import (
	"sync"
	"time"
)

// Debouncer delays a call until no new call has been scheduled for the
// configured interval. Only the most recently scheduled function runs.
type Debouncer struct {
	mu       sync.Mutex
	idle     *sync.Cond
	delay    time.Duration
	timer    *time.Timer
	pending  func()
	seq      uint64
	inflight int
}

func NewDebouncer(delay time.Duration) *Debouncer {
	d := &Debouncer{delay: delay}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Do schedules fn, replacing any call still waiting.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(seq)
	})
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.take()
	d.mu.Unlock()

	d.run(fn)
}

// take claims the pending call. d.mu must be held.
func (d *Debouncer) take() func() {
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.inflight++
	return fn
}

func (d *Debouncer) run(fn func()) {
	defer func() {
		d.mu.Lock()
		d.inflight--
		if d.inflight == 0 {
			d.idle.Broadcast()
		}
		d.mu.Unlock()
	}()
	fn()
}

// Flush runs the waiting call now, on the caller's goroutine.
// It reports whether there was anything to run.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.pending == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	fn := d.take()
	d.mu.Unlock()

	d.run(fn)
	return true
}

// Wait flushes the waiting call and blocks until no call is running.
func (d *Debouncer) Wait() {
	d.Flush()
	d.mu.Lock()
	for d.inflight > 0 {
		d.idle.Wait()
	}
	d.mu.Unlock()
}

// Stop drops the waiting call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.seq++
}
