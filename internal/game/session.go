package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/playperu/philosophersclick/internal/question"
)

const countdownInterval = time.Second

var ErrClosed = errors.New("session closed")

// Asker produces a curated question for a game. question.Pipeline satisfies it.
type Asker interface {
	Ask(ctx context.Context, gameName string) (question.CurateResult, error)
}

type Options struct {
	GameName                string
	ScoreInterval           time.Duration
	QuestionInterval        time.Duration
	ResponseSeconds         int
	PauseScoreWhileAwaiting bool

	// Clock defaults to the real clock. Tests inject a clockwork.FakeClock.
	Clock  clockwork.Clock
	Logger *slog.Logger
	// Observer receives every event on the session goroutine and should return
	// promptly; timers are not serviced while it runs.
	Observer func(Event)
}

func (o Options) withDefaults() Options {
	if o.GameName == "" {
		o.GameName = DefaultGameName
	}
	if o.ScoreInterval <= 0 {
		o.ScoreInterval = DefaultScoreInterval
	}
	if o.QuestionInterval <= 0 {
		o.QuestionInterval = DefaultQuestionInterval
	}
	if o.ResponseSeconds <= 0 {
		o.ResponseSeconds = DefaultResponseSeconds
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type commandKind int

const (
	cmdSnapshot commandKind = iota
	cmdSubmit
	cmdDismiss
	cmdTrigger
)

type command struct {
	kind   commandKind
	answer string
	reply  chan commandReply
}

type commandReply struct {
	resolution Resolution
	state      State
	started    bool
	err        error
}

type askResult struct {
	result question.CurateResult
	err    error
}

// Session is one running game. A single goroutine owns the Machine and the
// TimerSet; ticks, question results and player commands are handled on it
// one at a time.
type Session struct {
	id      string
	opts    Options
	asker   Asker
	logger  *slog.Logger
	machine *Machine
	timers  *TimerSet

	cmds  chan command
	asked chan askResult

	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Start launches a session. It runs until Close is called or ctx is done.
func Start(ctx context.Context, id string, asker Asker, opts Options) *Session {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:      id,
		opts:    opts,
		asker:   asker,
		logger:  opts.Logger.With("session_id", id),
		machine: NewMachine(opts.ResponseSeconds, opts.PauseScoreWhileAwaiting),
		timers:  NewTimerSet(opts.Clock),
		cmds:    make(chan command),
		asked:   make(chan askResult),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.timers.Start(ScoreTimer, opts.ScoreInterval)
	s.timers.Start(TriggerTimer, opts.QuestionInterval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	return s
}

func (s *Session) ID() string       { return s.id }
func (s *Session) GameName() string { return s.opts.GameName }

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close stops every timer, waits for in-flight work and returns the final state.
func (s *Session) Close() State {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
	return s.machine.State()
}

func (s *Session) Snapshot(ctx context.Context) (State, error) {
	r, err := s.do(ctx, command{kind: cmdSnapshot})
	return r.state, err
}

// Submit answers the pending question.
func (s *Session) Submit(ctx context.Context, answer string) (Resolution, State, error) {
	r, err := s.do(ctx, command{kind: cmdSubmit, answer: answer})
	return r.resolution, r.state, err
}

// Dismiss closes the pending question unanswered, which resets the score.
func (s *Session) Dismiss(ctx context.Context) (Resolution, State, error) {
	r, err := s.do(ctx, command{kind: cmdDismiss})
	return r.resolution, r.state, err
}

// Trigger fires the question trigger immediately. It reports false when a
// question is already pending or loading.
func (s *Session) Trigger(ctx context.Context) (bool, error) {
	r, err := s.do(ctx, command{kind: cmdTrigger})
	return r.started, err
}

func (s *Session) do(ctx context.Context, c command) (commandReply, error) {
	c.reply = make(chan commandReply, 1)
	select {
	case s.cmds <- c:
	case <-s.done:
		return commandReply{}, ErrClosed
	case <-ctx.Done():
		return commandReply{}, ctx.Err()
	}
	select {
	case r := <-c.reply:
		return r, r.err
	case <-ctx.Done():
		return commandReply{}, ctx.Err()
	}
}

func (s *Session) run(ctx context.Context) {
	defer func() {
		s.timers.StopAll()
		s.emit(Event{Type: EventClosed})
		close(s.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.timers.C(ScoreTimer):
			if s.machine.Tick() {
				s.emit(Event{Type: EventState})
			}
		case <-s.timers.C(TriggerTimer):
			s.trigger(ctx)
		case <-s.timers.C(CountdownTimer):
			if res, ok := s.machine.Countdown(); ok {
				s.resolved(res)
				continue
			}
			s.emit(Event{Type: EventState})
		case r := <-s.asked:
			s.finishAsk(r)
		case c := <-s.cmds:
			c.reply <- s.handle(ctx, c)
		}
	}
}

func (s *Session) handle(ctx context.Context, c command) commandReply {
	var r commandReply
	switch c.kind {
	case cmdSubmit:
		r.resolution, r.err = s.machine.Submit(c.answer)
		if r.err == nil {
			s.resolved(r.resolution)
		}
	case cmdDismiss:
		r.resolution, r.err = s.machine.Dismiss()
		if r.err == nil {
			s.resolved(r.resolution)
		}
	case cmdTrigger:
		r.started = s.trigger(ctx)
	}
	r.state = s.machine.State()
	return r
}

// trigger starts the question pipeline unless one is pending or loading.
func (s *Session) trigger(ctx context.Context) bool {
	if !s.machine.BeginLoading() {
		return false
	}
	n := noticeThinking
	s.emit(Event{Type: EventThinking, Notice: &n})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.asker.Ask(ctx, s.opts.GameName)
		select {
		case s.asked <- askResult{result: res, err: err}:
		case <-ctx.Done():
		}
	}()
	return true
}

func (s *Session) finishAsk(r askResult) {
	if r.err != nil {
		s.machine.Skip()
		s.timers.Reset(TriggerTimer)
		s.logger.Error("question generation failed", "error", r.err)
		n := noticeFailed
		s.emit(Event{Type: EventFailed, Notice: &n})
		return
	}
	if !r.result.Accepted() {
		s.machine.Skip()
		s.timers.Reset(TriggerTimer)
		s.logger.Info("question skipped", "question", r.result.CuratedQuestion)
		n := noticeSkipped
		s.emit(Event{Type: EventSkipped, Notice: &n})
		return
	}
	if err := s.machine.Present(r.result.CuratedQuestion); err != nil {
		s.machine.Skip()
		s.timers.Reset(TriggerTimer)
		s.logger.Warn("question rejected", "error", err)
		n := noticeSkipped
		s.emit(Event{Type: EventSkipped, Notice: &n})
		return
	}
	s.timers.Start(CountdownTimer, countdownInterval)
	s.logger.Info("question presented", "question", r.result.CuratedQuestion)
	s.emit(Event{Type: EventQuestion})
}

func (s *Session) resolved(r Resolution) {
	s.timers.Stop(CountdownTimer)
	s.timers.Reset(TriggerTimer)
	s.logger.Info("question resolved", "outcome", r.Outcome, "score_before", r.ScoreBefore)
	n := noticeFor(r.Outcome)
	s.emit(Event{Type: EventResolved, Notice: &n, Resolution: &r})
}

func (s *Session) emit(e Event) {
	e.State = s.machine.State()
	if s.opts.Observer != nil {
		s.opts.Observer(e)
	}
}
