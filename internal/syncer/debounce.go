package syncer

import (
	"context"
	"sync"
	"time"
)

// Task is a unit of deferred work.
type Task func(ctx context.Context) error

// Result reports the outcome of one executed task.
type Result struct {
	// Seq is the generation of the task that ran.
	Seq uint64
	At  time.Time
	Err error
}

// Debouncer holds at most one pending task. Scheduling replaces the pending
// task and restarts the delay, so a burst of changes results in a single
// execution of the last one. Executions never overlap.
type Debouncer struct {
	delay    time.Duration
	timeout  time.Duration
	onResult func(Result)

	mu      sync.Mutex
	timer   *time.Timer
	pending Task
	seq     uint64
	closed  bool

	runMu sync.Mutex
}

// NewDebouncer creates a Debouncer that runs tasks delay after the last
// Schedule. onResult, if set, receives every outcome; it must not block
// for long.
func NewDebouncer(delay time.Duration, onResult func(Result)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		timeout:  30 * time.Second,
		onResult: onResult,
	}
}

// Schedule replaces any pending task with task and restarts the timer. It
// returns the task's generation, or 0 once the debouncer is closed.
func (d *Debouncer) Schedule(task Task) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = task
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
	return seq
}

// Pending reports whether a task is waiting.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Flush runs the pending task now, on the calling goroutine. ok is false
// when nothing was pending.
func (d *Debouncer) Flush(ctx context.Context) (res Result, ok bool) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	task, seq := d.take(0)
	if task == nil {
		return Result{}, false
	}
	return d.run(ctx, task, seq), true
}

// Cancel drops the pending task without running it.
func (d *Debouncer) Cancel() bool {
	task, _ := d.take(0)
	return task != nil
}

// Close cancels the pending task and rejects later schedules. A task that
// is already running is allowed to finish.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.Cancel()
}

func (d *Debouncer) fire(seq uint64) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	task, _ := d.take(seq)
	if task == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	d.run(ctx, task, seq)
}

// take removes and returns the pending task. A non-zero seq only matches the
// task of that generation, so timers of replaced tasks find nothing.
func (d *Debouncer) take(seq uint64) (Task, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending == nil || (seq != 0 && seq != d.seq) {
		return nil, 0
	}
	task := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return task, d.seq
}

// run executes task. Callers hold runMu from take onwards, so a task taken
// later never finishes before one taken earlier.
func (d *Debouncer) run(ctx context.Context, task Task, seq uint64) Result {
	err := task(ctx)

	res := Result{Seq: seq, At: time.Now(), Err: err}
	if d.onResult != nil {
		d.onResult(res)
	}
	return res
}
