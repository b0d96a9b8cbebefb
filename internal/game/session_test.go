package game

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/playperu/philosophersclick/internal/question"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const scenarioQuestion = "If the points ceased to exist, would you still play?"

type stubAsker struct {
	mu     sync.Mutex
	calls  int
	result question.CurateResult
	err    error
	block  chan struct{}
}

func (a *stubAsker) Ask(ctx context.Context, _ string) (question.CurateResult, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.block != nil {
		select {
		case <-a.block:
		case <-ctx.Done():
			return question.CurateResult{}, ctx.Err()
		}
	}
	return a.result, a.err
}

func (a *stubAsker) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func validAsker() *stubAsker {
	return &stubAsker{result: question.CurateResult{CuratedQuestion: scenarioQuestion, IsValid: true}}
}

type harness struct {
	t       *testing.T
	clock   *clockwork.FakeClock
	session *Session
	events  chan Event
}

func newHarness(t *testing.T, asker Asker, opts Options) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		clock:  clockwork.NewFakeClock(),
		events: make(chan Event, 1024),
	}
	opts.Clock = h.clock
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.Observer = func(e Event) { h.events <- e }
	h.session = Start(context.Background(), "session-1", asker, opts)
	t.Cleanup(func() { h.session.Close() })
	return h
}

// waitFor consumes events until every predicate has matched at least one.
// It returns the event that satisfied the last outstanding predicate.
func (h *harness) waitFor(preds ...func(Event) bool) Event {
	h.t.Helper()
	pending := append([]func(Event) bool(nil), preds...)
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-h.events:
			rest := pending[:0]
			for _, p := range pending {
				if !p(e) {
					rest = append(rest, p)
				}
			}
			pending = rest
			if len(pending) == 0 {
				return e
			}
		case <-timeout:
			h.t.Fatalf("timed out waiting for %d event(s)", len(pending))
			return Event{}
		}
	}
}

func ofType(typ EventType) func(Event) bool {
	return func(e Event) bool { return e.Type == typ }
}

func withScore(n int) func(Event) bool {
	return func(e Event) bool { return e.State.Score == n }
}

func withTimeRemaining(n int) func(Event) bool {
	return func(e Event) bool { return e.State.Awaiting && e.State.TimeRemaining == n }
}

// accrue advances the clock one second at a time until the score reaches n.
func (h *harness) accrue(n int) {
	h.t.Helper()
	for i := 1; i <= n; i++ {
		h.clock.Advance(time.Second)
		h.waitFor(withScore(i))
	}
}

func (h *harness) ask() Event {
	h.t.Helper()
	started, err := h.session.Trigger(context.Background())
	require.NoError(h.t, err)
	require.True(h.t, started)
	return h.waitFor(ofType(EventQuestion))
}

func TestSessionScoreEqualsElapsedSeconds(t *testing.T) {
	h := newHarness(t, validAsker(), Options{QuestionInterval: time.Hour})
	h.accrue(5)

	s, err := h.session.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, s.Score)
	assert.False(t, s.Awaiting)
}

func TestSessionTriggerTickPresentsQuestion(t *testing.T) {
	svc := scenarioService{}
	asker := question.NewPipeline(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := newHarness(t, asker, Options{
		GameName:         "Philosopher's Click",
		ScoreInterval:    time.Hour,
		QuestionInterval: 3 * time.Second,
	})

	h.clock.Advance(3 * time.Second)
	thinking := h.waitFor(ofType(EventThinking))
	require.NotNil(t, thinking.Notice)
	assert.True(t, thinking.State.Loading)

	e := h.waitFor(ofType(EventQuestion))
	assert.True(t, e.State.Awaiting)
	assert.False(t, e.State.Loading)
	assert.Equal(t, scenarioQuestion, e.State.Question)
	assert.Equal(t, 60, e.State.TimeRemaining)

	h.clock.Advance(time.Second)
	h.waitFor(withTimeRemaining(59))
}

type scenarioService struct{}

func (scenarioService) Generate(context.Context, question.GenerateRequest) (question.GenerateResult, error) {
	return question.GenerateResult{Question: scenarioQuestion}, nil
}

func (scenarioService) Curate(ctx context.Context, req question.CurateRequest) (question.CurateResult, error) {
	return question.NewOffline().Curate(ctx, req)
}

func TestSessionCountdownTimeoutResetsScore(t *testing.T) {
	h := newHarness(t, validAsker(), Options{QuestionInterval: time.Hour})
	h.accrue(3)
	h.ask()

	for i := 1; i < 60; i++ {
		h.clock.Advance(time.Second)
		h.waitFor(withTimeRemaining(60-i), withScore(3+i))
	}

	h.clock.Advance(time.Second)
	e := h.waitFor(ofType(EventResolved))
	require.NotNil(t, e.Resolution)
	assert.Equal(t, OutcomeTimeout, e.Resolution.Outcome)
	assert.Equal(t, 0, e.Resolution.ScoreAfter)
	assert.False(t, e.State.Awaiting)
	assert.Empty(t, e.State.Question)
	require.NotNil(t, e.Notice)
	assert.Equal(t, NoticeDestructive, e.Notice.Level)

	s, err := h.session.Snapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Awaiting)
	assert.LessOrEqual(t, s.Score, 1)
}

func TestSessionPlayerResolutions(t *testing.T) {
	tests := []struct {
		name      string
		act       func(s *Session) (Resolution, State, error)
		outcome   Outcome
		wantScore int
	}{
		{
			name: "answer keeps score",
			act: func(s *Session) (Resolution, State, error) {
				return s.Submit(context.Background(), "Yes, the clicking is the point.")
			},
			outcome:   OutcomeAnswered,
			wantScore: 4,
		},
		{
			name: "empty answer resets immediately",
			act: func(s *Session) (Resolution, State, error) {
				return s.Submit(context.Background(), "")
			},
			outcome:   OutcomeEmptyAnswer,
			wantScore: 0,
		},
		{
			name: "dismiss resets",
			act: func(s *Session) (Resolution, State, error) {
				return s.Dismiss(context.Background())
			},
			outcome:   OutcomeDismissed,
			wantScore: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, validAsker(), Options{QuestionInterval: time.Hour, PauseScoreWhileAwaiting: true})
			h.accrue(4)
			h.ask()

			h.clock.Advance(time.Second)
			h.waitFor(withTimeRemaining(59))

			res, state, err := tt.act(h.session)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, 4, res.ScoreBefore)
			assert.Equal(t, tt.wantScore, res.ScoreAfter)
			assert.Equal(t, tt.wantScore, state.Score)
			assert.False(t, state.Awaiting)
			assert.Equal(t, 60, state.TimeRemaining)

			e := h.waitFor(ofType(EventResolved))
			assert.Equal(t, tt.outcome, e.Resolution.Outcome)

			// The countdown is retired: the next tick only moves the score.
			h.clock.Advance(time.Second)
			e = h.waitFor(withScore(tt.wantScore + 1))
			assert.False(t, e.State.Awaiting)
			assert.Equal(t, 60, e.State.TimeRemaining)
		})
	}
}

func TestSessionPlayerActionsWhileIdle(t *testing.T) {
	h := newHarness(t, validAsker(), Options{QuestionInterval: time.Hour})

	_, _, err := h.session.Submit(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotAwaiting)
	_, _, err = h.session.Dismiss(context.Background())
	assert.ErrorIs(t, err, ErrNotAwaiting)
}

func TestSessionNoOverlappingGeneration(t *testing.T) {
	asker := validAsker()
	asker.block = make(chan struct{})
	h := newHarness(t, asker, Options{ScoreInterval: time.Hour, QuestionInterval: 3 * time.Second})

	started, err := h.session.Trigger(context.Background())
	require.NoError(t, err)
	require.True(t, started)
	h.waitFor(ofType(EventThinking))

	started, err = h.session.Trigger(context.Background())
	require.NoError(t, err)
	assert.False(t, started, "trigger while loading")

	h.clock.Advance(3 * time.Second)
	s, err := h.session.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Loading)

	close(asker.block)
	h.waitFor(ofType(EventQuestion))

	started, err = h.session.Trigger(context.Background())
	require.NoError(t, err)
	assert.False(t, started, "trigger while awaiting")

	h.clock.Advance(3 * time.Second)
	_, err = h.session.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, asker.Calls())
}

func TestSessionInvalidQuestionIsSkipped(t *testing.T) {
	asker := &stubAsker{result: question.CurateResult{CuratedQuestion: "Why is the sky blue?", IsValid: false}}
	h := newHarness(t, asker, Options{QuestionInterval: time.Hour})
	h.accrue(2)

	started, err := h.session.Trigger(context.Background())
	require.NoError(t, err)
	require.True(t, started)

	e := h.waitFor(ofType(EventSkipped))
	assert.False(t, e.State.Awaiting)
	assert.False(t, e.State.Loading)
	assert.Equal(t, 2, e.State.Score)
}

func TestSessionGenerationFailureRecovers(t *testing.T) {
	asker := &stubAsker{err: errors.New("model unavailable")}
	h := newHarness(t, asker, Options{QuestionInterval: time.Hour})
	h.accrue(2)

	_, err := h.session.Trigger(context.Background())
	require.NoError(t, err)
	e := h.waitFor(ofType(EventFailed))
	assert.False(t, e.State.Loading)
	assert.Equal(t, 2, e.State.Score)
	require.NotNil(t, e.Notice)
	assert.Equal(t, NoticeDestructive, e.Notice.Level)

	started, err := h.session.Trigger(context.Background())
	require.NoError(t, err)
	assert.True(t, started)
	h.waitFor(ofType(EventFailed))
	assert.Equal(t, 2, asker.Calls())
}

func TestSessionCloseTearsDown(t *testing.T) {
	asker := validAsker()
	asker.block = make(chan struct{})
	h := newHarness(t, asker, Options{QuestionInterval: time.Hour})
	h.accrue(2)

	_, err := h.session.Trigger(context.Background())
	require.NoError(t, err)
	h.waitFor(ofType(EventThinking))

	final := h.session.Close()
	assert.Equal(t, 2, final.Score)
	h.waitFor(ofType(EventClosed))

	select {
	case <-h.session.Done():
	default:
		t.Fatal("session goroutine still running after Close")
	}

	_, err = h.session.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = h.session.Submit(context.Background(), "late")
	assert.ErrorIs(t, err, ErrClosed)

	h.session.Close()
}
