package game

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer names one of the periodic actions owned by a session.
type Timer string

const (
	ScoreTimer     Timer = "score"
	TriggerTimer   Timer = "trigger"
	CountdownTimer Timer = "countdown"
)

// TimerSet owns a session's tickers. A stopped timer reports a nil channel,
// so a select over C never sees a tick from a retired timer.
// TimerSet is not safe for concurrent use.
type TimerSet struct {
	clock   clockwork.Clock
	periods map[Timer]time.Duration
	tickers map[Timer]clockwork.Ticker
}

func NewTimerSet(clock clockwork.Clock) *TimerSet {
	return &TimerSet{
		clock:   clock,
		periods: make(map[Timer]time.Duration),
		tickers: make(map[Timer]clockwork.Ticker),
	}
}

// Start (re)starts the named timer with period d, replacing any running one.
func (s *TimerSet) Start(name Timer, d time.Duration) {
	s.Stop(name)
	s.periods[name] = d
	s.tickers[name] = s.clock.NewTicker(d)
}

// Reset restarts a running timer's period from now. Stopped timers stay stopped.
func (s *TimerSet) Reset(name Timer) {
	t, ok := s.tickers[name]
	if !ok {
		return
	}
	stopAndDrain(t)
	t.Reset(s.periods[name])
}

// Stop cancels the named timer. Stopping a stopped timer is a no-op.
func (s *TimerSet) Stop(name Timer) {
	if t, ok := s.tickers[name]; ok {
		stopAndDrain(t)
		delete(s.tickers, name)
	}
}

// StopAll cancels every timer in the set.
func (s *TimerSet) StopAll() {
	for name := range s.tickers {
		s.Stop(name)
	}
}

func (s *TimerSet) Running(name Timer) bool {
	_, ok := s.tickers[name]
	return ok
}

// C returns the tick channel of the named timer, or nil if it is not running.
func (s *TimerSet) C(name Timer) <-chan time.Time {
	if t, ok := s.tickers[name]; ok {
		return t.Chan()
	}
	return nil
}

func stopAndDrain(t clockwork.Ticker) {
	t.Stop()
	select {
	case <-t.Chan():
	default:
	}
}
