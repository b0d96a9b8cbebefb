package game

import (
	"errors"
	"strings"
)

var (
	ErrNotAwaiting   = errors.New("no question is awaiting an answer")
	ErrNotLoading    = errors.New("no question is being generated")
	ErrEmptyQuestion = errors.New("question is empty")
)

// Machine is the Idle/AwaitingAnswer state machine. It holds no timers and
// no locks; a Session serializes every call onto its loop goroutine.
type Machine struct {
	state           State
	responseSeconds int
	pauseAwaiting   bool
}

// NewMachine returns a machine in the Idle state with a zero score.
// responseSeconds is the length of the answer window.
func NewMachine(responseSeconds int, pauseWhileAwaiting bool) *Machine {
	if responseSeconds <= 0 {
		responseSeconds = DefaultResponseSeconds
	}
	return &Machine{
		state:           State{TimeRemaining: responseSeconds},
		responseSeconds: responseSeconds,
		pauseAwaiting:   pauseWhileAwaiting,
	}
}

func (m *Machine) State() State { return m.state }

// Tick adds one point. It reports false when accrual is paused by a
// pending question.
func (m *Machine) Tick() bool {
	if m.pauseAwaiting && m.state.Awaiting {
		return false
	}
	m.state.Score++
	return true
}

// CanTrigger reports whether a new question may be generated.
func (m *Machine) CanTrigger() bool {
	return !m.state.Awaiting && !m.state.Loading
}

// BeginLoading marks a generation as in flight. It returns false, leaving
// the state untouched, when a question is pending or already loading.
func (m *Machine) BeginLoading() bool {
	if !m.CanTrigger() {
		return false
	}
	m.state.Loading = true
	return true
}

// Present ends a generation by opening the answer window for q.
func (m *Machine) Present(q string) error {
	if !m.state.Loading {
		return ErrNotLoading
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return ErrEmptyQuestion
	}
	m.state.Loading = false
	m.state.Awaiting = true
	m.state.Question = q
	m.state.TimeRemaining = m.responseSeconds
	return nil
}

// Skip ends a generation without presenting anything.
func (m *Machine) Skip() {
	m.state.Loading = false
}

// Countdown removes one second from the answer window. When the window
// closes it resolves the question as a timeout and returns the resolution.
func (m *Machine) Countdown() (Resolution, bool) {
	if !m.state.Awaiting {
		return Resolution{}, false
	}
	m.state.TimeRemaining--
	if m.state.TimeRemaining > 0 {
		return Resolution{}, false
	}
	return m.resolve(OutcomeTimeout, ""), true
}

// Submit answers the pending question. A blank answer counts as a failure.
func (m *Machine) Submit(answer string) (Resolution, error) {
	if !m.state.Awaiting {
		return Resolution{}, ErrNotAwaiting
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return m.resolve(OutcomeEmptyAnswer, ""), nil
	}
	return m.resolve(OutcomeAnswered, answer), nil
}

// Dismiss closes the question without answering it.
func (m *Machine) Dismiss() (Resolution, error) {
	if !m.state.Awaiting {
		return Resolution{}, ErrNotAwaiting
	}
	return m.resolve(OutcomeDismissed, ""), nil
}

func (m *Machine) resolve(o Outcome, answer string) Resolution {
	r := Resolution{
		Outcome:     o,
		Question:    m.state.Question,
		Answer:      answer,
		ScoreBefore: m.state.Score,
	}
	if o.ResetsScore() {
		m.state.Score = 0
	}
	m.state.Awaiting = false
	m.state.Question = ""
	m.state.TimeRemaining = m.responseSeconds
	r.ScoreAfter = m.state.Score
	return r
}
