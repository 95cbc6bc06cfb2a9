package loop

import (
	"sort"
	"time"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/napi-runtime/errors"
)

// TimerFunc is invoked when a timer fires.
type TimerFunc func(t *Timer)

// CloseFunc is invoked once when a timer is closed.
type CloseFunc func(t *Timer)

type timerState uint8

const (
	timerIdle timerState = iota
	timerRunning
	timerClosed
)

// Timer is a single scheduled callback. The zero value is an idle timer.
type Timer struct {
	// Data is free for the owner of the timer.
	Data any

	cb      TimerFunc
	closeCb CloseFunc
	due     uint64
	repeat  uint64
	state   timerState
}

// Due returns the scheduler time, in milliseconds, at which t fires next.
func (t *Timer) Due() uint64 { return t.due }

// Repeat returns the repeat interval in milliseconds, 0 for one-shot timers.
func (t *Timer) Repeat() uint64 { return t.repeat }

// Running reports whether t is queued.
func (t *Timer) Running() bool { return t.state == timerRunning }

// Scheduler owns the timer queue.
type Scheduler struct {
	clock  sys.Nanotime
	logger *zap.Logger
	queue  []*Timer
	now    uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the monotonic clock. The clock reports nanoseconds.
func WithClock(clock sys.Nanotime) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the scheduler's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a scheduler and samples its clock once.
func New(opts ...Option) *Scheduler {
	start := time.Now()
	s := &Scheduler{
		clock:  func() int64 { return time.Since(start).Nanoseconds() },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.update()
	return s
}

func (s *Scheduler) update() {
	if ns := s.clock(); ns > 0 {
		s.now = uint64(ns) / uint64(time.Millisecond)
	}
}

// Now returns the time sampled by the last Tick, in milliseconds.
func (s *Scheduler) Now() uint64 { return s.now }

// Len returns the number of running timers.
func (s *Scheduler) Len() int { return len(s.queue) }

// Start queues t to fire timeoutMS after the last sampled time, then every
// repeatMS if repeatMS is non-zero. closeCb, if set, runs once when the timer
// is closed.
func (s *Scheduler) Start(t *Timer, timeoutMS, repeatMS uint64, cb TimerFunc, closeCb CloseFunc) error {
	const op = "timer_start"
	if t == nil || cb == nil {
		return errors.InvalidArg(errors.PhaseTimer, op, "need a timer and a callback")
	}
	if t.state == timerRunning {
		return errors.Duplicate(errors.PhaseTimer, op, "running timer")
	}

	t.cb = cb
	t.closeCb = closeCb
	t.due = s.now + timeoutMS
	t.repeat = repeatMS
	t.state = timerRunning
	s.push(t)

	s.logger.Debug("timer started",
		zap.Uint64("due", t.due),
		zap.Uint64("repeat", repeatMS))
	return nil
}

// Close stops t and runs its close callback.
func (s *Scheduler) Close(t *Timer) error {
	const op = "timer_close"
	if t == nil {
		return errors.InvalidArg(errors.PhaseTimer, op, "nil timer")
	}
	if t.state != timerRunning {
		return errors.NotFound(errors.PhaseTimer, op, "running timer")
	}
	s.remove(t)
	t.state = timerClosed
	if t.closeCb != nil {
		t.closeCb(t)
	}
	return nil
}

// Tick samples the clock and fires every due timer. It returns the number of
// callbacks run.
func (s *Scheduler) Tick() int {
	s.update()

	fired := 0
	for len(s.queue) > 0 {
		t := s.queue[0]
		if t.due > s.now {
			break
		}
		if t.repeat > 0 {
			s.remove(t)
			t.due = s.now + t.repeat
			s.push(t)
		} else {
			s.Close(t)
		}
		t.cb(t)
		fired++
	}

	if fired > 0 {
		s.logger.Debug("timers fired", zap.Int("count", fired), zap.Uint64("now", s.now))
	}
	return fired
}

// push inserts t after every timer due at or before it.
func (s *Scheduler) push(t *Timer) {
	i := sort.Search(len(s.queue), func(i int) bool {
		return s.queue[i].due > t.due
	})
	s.queue = append(s.queue, nil)
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = t
}

func (s *Scheduler) remove(t *Timer) {
	for i, q := range s.queue {
		if q == t {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}
