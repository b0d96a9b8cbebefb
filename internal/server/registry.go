package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/playperu/philosophersclick/internal/game"
)

var errRegistryClosed = errors.New("session registry closed")

const (
	journalTimeout = 2 * time.Second
	journalBuffer  = 256
)

type journalEntry struct {
	sessionID  string
	resolution game.Resolution
}

// liveSession is a running session plus its idle bookkeeping. idleGen
// invalidates expiry callbacks that fire after the timer was re-armed.
type liveSession struct {
	session *game.Session
	subs    int
	idle    clockwork.Timer
	idleGen int
}

// Registry owns the running game sessions. Each session publishes its events
// to the broker and journals resolved questions to the store. Sessions with
// no stream attached and no requests for the idle TTL are ended.
type Registry struct {
	asker   game.Asker
	opts    game.Options
	store   Store
	broker  *Broker
	logger  *slog.Logger
	clock   clockwork.Clock
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*liveSession
	closed   bool

	journalMu     sync.RWMutex
	journal       chan journalEntry
	journalClosed bool
	journalDone   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

type RegistryOption func(*Registry)

// WithIdleTTL ends sessions that stay unobserved for d. Zero disables it.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

// NewRegistry returns a registry whose sessions are started with opts.
// opts.Observer is replaced per session; opts.Clock also drives idle expiry.
func NewRegistry(asker game.Asker, opts game.Options, store Store, broker *Broker, logger *slog.Logger, ropts ...RegistryOption) *Registry {
	if opts.GameName == "" {
		opts.GameName = game.DefaultGameName
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	r := &Registry{
		asker:       asker,
		opts:        opts,
		store:       store,
		broker:      broker,
		logger:      logger,
		clock:       opts.Clock,
		sessions:    make(map[string]*liveSession),
		journal:     make(chan journalEntry, journalBuffer),
		journalDone: make(chan struct{}),
	}
	for _, o := range ropts {
		o(r)
	}
	go r.writeJournal()
	return r
}

// Create starts a new session. An empty gameName uses the registry default.
func (r *Registry) Create(ctx context.Context, gameName string) (*game.Session, error) {
	if gameName == "" {
		gameName = r.opts.GameName
	}
	if err := r.Check(ctx); err != nil {
		return nil, err
	}
	id := uuid.NewString()

	if err := r.store.CreateSession(ctx, id, gameName); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		if err := r.store.EndSession(ctx, id, 0); err != nil {
			r.logger.Error("ending orphaned session", "session_id", id, "error", err)
		}
		return nil, errRegistryClosed
	}

	opts := r.opts
	opts.GameName = gameName
	opts.Logger = r.logger
	opts.Observer = r.observer(id)
	ls := &liveSession{session: game.Start(context.Background(), id, r.asker, opts)}
	r.sessions[id] = ls
	r.armIdle(id, ls)

	r.logger.Info("session started", "session_id", id, "game_name", gameName)
	return ls.session, nil
}

func (r *Registry) Get(id string) (*game.Session, error) {
	r.mu.Lock()
	ls, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return ls.session, nil
}

// Acquire marks a stream as attached to the session, suspending idle
// expiry until the returned release is called.
func (r *Registry) Acquire(id string) (release func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	ls.subs++
	r.stopIdle(ls)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			ls.subs--
			if r.sessions[id] == ls && ls.subs == 0 {
				r.armIdle(id, ls)
			}
		})
	}, nil
}

// Touch restarts the idle timer of an unobserved session.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ls, ok := r.sessions[id]; ok && ls.subs == 0 {
		r.armIdle(id, ls)
	}
}

// armIdle (re)starts the idle timer. Callers hold r.mu.
func (r *Registry) armIdle(id string, ls *liveSession) {
	if r.idleTTL <= 0 {
		return
	}
	r.stopIdle(ls)
	gen := ls.idleGen
	ls.idle = r.clock.AfterFunc(r.idleTTL, func() { go r.expire(id, gen) })
}

// stopIdle cancels the idle timer. Callers hold r.mu.
func (r *Registry) stopIdle(ls *liveSession) {
	ls.idleGen++
	if ls.idle != nil {
		ls.idle.Stop()
		ls.idle = nil
	}
}

func (r *Registry) expire(id string, gen int) {
	r.mu.Lock()
	ls, ok := r.sessions[id]
	if !ok || ls.subs > 0 || ls.idleGen != gen {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	final, err := r.finish(ctx, id, ls)
	if err != nil {
		r.logger.Error("ending idle session", "session_id", id, "error", err)
		return
	}
	r.logger.Info("idle session expired", "session_id", id, "final_score", final.Score)
}

// End tears a session down and records its final score.
func (r *Registry) End(ctx context.Context, id string) (game.State, error) {
	r.mu.Lock()
	ls, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return game.State{}, ErrNotFound
	}

	final, err := r.finish(ctx, id, ls)
	if err != nil {
		return final, err
	}
	r.logger.Info("session ended", "session_id", id, "final_score", final.Score)
	return final, nil
}

// finish closes a session already removed from the map.
func (r *Registry) finish(ctx context.Context, id string, ls *liveSession) (game.State, error) {
	r.mu.Lock()
	r.stopIdle(ls)
	r.mu.Unlock()

	final := ls.session.Close()
	if err := r.store.EndSession(ctx, id, final.Score); err != nil {
		return final, fmt.Errorf("storing final score: %w", err)
	}
	return final, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Check reports whether the registry still accepts sessions.
func (r *Registry) Check(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errRegistryClosed
	}
	return nil
}

// Close ends every session and flushes the journal. Sessions cannot be
// created afterwards. Concurrent callers wait for the first to finish.
func (r *Registry) Close() error {
	r.closeOnce.Do(func() { r.closeErr = r.close() })
	return r.closeErr
}

func (r *Registry) close() error {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*liveSession)
	r.mu.Unlock()

	var errs []error
	for id, ls := range sessions {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		if _, err := r.finish(ctx, id, ls); err != nil {
			errs = append(errs, fmt.Errorf("ending session %s: %w", id, err))
		}
		cancel()
	}

	r.journalMu.Lock()
	r.journalClosed = true
	close(r.journal)
	r.journalMu.Unlock()
	<-r.journalDone

	return errors.Join(errs...)
}

func (r *Registry) observer(id string) func(game.Event) {
	return func(e game.Event) {
		r.broker.Publish(id, e)
		if e.Resolution == nil {
			return
		}

		r.journalMu.RLock()
		defer r.journalMu.RUnlock()
		if r.journalClosed {
			return
		}
		select {
		case r.journal <- journalEntry{sessionID: id, resolution: *e.Resolution}:
		default:
			r.logger.Error("journal full, reflection dropped", "session_id", id)
		}
	}
}

// writeJournal persists resolutions off the session goroutines.
func (r *Registry) writeJournal() {
	defer close(r.journalDone)
	for entry := range r.journal {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		if _, err := r.store.RecordReflection(ctx, entry.sessionID, entry.resolution); err != nil {
			r.logger.Error("recording reflection failed", "session_id", entry.sessionID, "error", err)
		}
		cancel()
	}
}
