package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine owns the deadline state machine. All timer state lives behind its
// mutex; commands and the tick loop may call in from different goroutines
// and whichever terminal transition commits first wins; the loser observes
// ErrNoActiveTimer instead of producing a second outcome.
type Engine struct {
	clock     Clock
	store     Store
	cfg       Config
	handler   Handler
	presenter Presenter
	probe     SubjectProbe
	logger    *slog.Logger

	mu            sync.Mutex
	active        *ActiveTimer
	phase         Phase
	hasWarned     bool
	graceDeadline time.Time
	// promptPending marks a grace window entered during reconciliation,
	// whose prompt still has to fire on the first tick.
	promptPending bool
}

// EngineOptions collects the engine's collaborators. Store and Handler are
// required; everything else has a working default.
type EngineOptions struct {
	Clock     Clock
	Store     Store
	Config    Config
	Handler   Handler
	Presenter Presenter
	Probe     SubjectProbe
	Logger    *slog.Logger
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("engine requires a state store")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("engine requires an outcome handler")
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Presenter == nil {
		opts.Presenter = nopPresenter{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		clock:     opts.Clock,
		store:     opts.Store,
		cfg:       opts.Config,
		handler:   opts.Handler,
		presenter: opts.Presenter,
		probe:     opts.Probe,
		logger:    opts.Logger,
		phase:     PhaseIdle,
	}, nil
}

// Start arms a deadline on the given subject. Exactly one timer may exist;
// a second Start fails with ErrAlreadyActive and leaves the first intact.
func (e *Engine) Start(subjectID string, duration time.Duration) (*ActiveTimer, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("no subject given")
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		return nil, fmt.Errorf("%w for %q", ErrAlreadyActive, e.active.SubjectID)
	}

	now := e.clock.Now()
	record := &ActiveTimer{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}
	if err := e.store.Save(record); err != nil {
		return nil, err
	}

	e.active = record
	e.phase = PhaseRunning
	e.hasWarned = false
	e.graceDeadline = time.Time{}
	e.promptPending = false

	e.logger.Info("timer started",
		"subject", subjectID, "expires_at", record.ExpiresAt)
	rv := *record
	return &rv, nil
}

// Tick advances the state machine one step against the current clock
// reading. It is meant to run on a ~1s cadence; any single tick's failure
// is returned to the caller and must not stop the loop. The display text is
// always recomputed and pushed to the presenter, without touching the store
// unless the tick resolves the timer.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	e.mu.Lock()

	res := TickResult{Phase: e.phase}
	if e.active == nil {
		res.Display = "no active timer"
		e.mu.Unlock()
		e.presenter.RenderCountdown(res.Display)
		return res, nil
	}

	now := e.clock.Now()
	active := e.active
	remaining := active.Remaining(now)
	res.SubjectID = active.SubjectID
	res.Remaining = remaining

	var resolveErr error

	switch e.phase {
	case PhaseRunning, PhaseWarning:
		// The warning check runs before the expiry check so a short
		// duration still warns exactly once even when it expires on the
		// same tick.
		if !e.hasWarned && e.cfg.WarnThreshold > 0 && remaining <= e.cfg.WarnThreshold {
			e.hasWarned = true
			res.Warned = true
			if remaining > 0 {
				e.phase = PhaseWarning
			}
		}
		if remaining <= 0 {
			if e.cfg.Grace <= 0 {
				res.Outcome, resolveErr = e.resolveLocked(now, OutcomeFailed, ReasonExpired)
			} else {
				e.phase = PhaseGrace
				e.graceDeadline = now.Add(e.cfg.Grace)
				res.GraceEntered = true
			}
		}
	case PhaseGrace:
		if !now.Before(e.graceDeadline) {
			res.Outcome, resolveErr = e.resolveLocked(now, OutcomeFailed, ReasonExpired)
		} else if e.promptPending {
			e.promptPending = false
			res.GraceEntered = true
		}
	case PhaseIdle, PhaseResolving:
		// Nothing to drive.
	}

	res.Phase = e.phase
	switch {
	case res.Outcome != nil:
		res.Display = "time is up"
	case e.phase == PhaseGrace:
		res.Display = "grace " + formatClock(e.graceDeadline.Sub(now))
	default:
		res.Display = formatClock(remaining)
	}
	subject := active.SubjectID
	graceWindow := e.cfg.Grace
	e.mu.Unlock()

	e.presenter.RenderCountdown(res.Display)
	if res.Warned {
		e.presenter.NotifyWarning(subject, remaining)
	}
	if res.GraceEntered {
		e.presenter.PromptGraceChoice(subject, graceWindow, func() {
			_, err := e.Complete(context.Background(), subject)
			if err != nil {
				e.logger.Debug("grace completion lost the race", "subject", subject, "error", err)
			}
		})
	}
	if res.Outcome != nil {
		e.deliver(ctx, res.Outcome)
	}
	if resolveErr != nil {
		return res, resolveErr
	}
	return res, nil
}

// Complete resolves the active timer as finished in time. subjectID may be
// empty to target whatever timer is active.
func (e *Engine) Complete(ctx context.Context, subjectID string) (*Outcome, error) {
	return e.resolve(ctx, subjectID, OutcomeCompleted, "")
}

// Fail resolves the active timer as forfeited, either because the grace
// window lapsed or because the user cancelled.
func (e *Engine) Fail(ctx context.Context, subjectID string, reason FailReason) (*Outcome, error) {
	return e.resolve(ctx, subjectID, OutcomeFailed, reason)
}

func (e *Engine) resolve(ctx context.Context, subjectID string, kind OutcomeKind, reason FailReason) (*Outcome, error) {
	e.mu.Lock()
	if e.active == nil {
		e.mu.Unlock()
		return nil, ErrNoActiveTimer
	}
	if subjectID != "" && subjectID != e.active.SubjectID {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %q is not the timed draft", ErrNoActiveTimer, subjectID)
	}
	outcome, err := e.resolveLocked(e.clock.Now(), kind, reason)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	e.deliver(ctx, outcome)
	return outcome, nil
}

// resolveLocked commits the terminal transition: the store is cleared
// first, so a save failure means the operation did not take effect and the
// prior state stays authoritative. Callers must hold e.mu and must deliver
// the returned outcome after unlocking.
func (e *Engine) resolveLocked(now time.Time, kind OutcomeKind, reason FailReason) (*Outcome, error) {
	if e.active == nil {
		return nil, ErrNoActiveTimer
	}
	if err := e.store.Save(nil); err != nil {
		return nil, err
	}
	outcome := &Outcome{
		Kind:       kind,
		SubjectID:  e.active.SubjectID,
		Reason:     reason,
		ResolvedAt: now,
	}
	e.active = nil
	e.hasWarned = false
	e.graceDeadline = time.Time{}
	e.promptPending = false
	e.phase = PhaseResolving
	return outcome, nil
}

// deliver hands the outcome to the handler exactly once. Handler failures
// are logged and do not re-open the timer; the record is already gone.
func (e *Engine) deliver(ctx context.Context, outcome *Outcome) {
	var err error
	switch outcome.Kind {
	case OutcomeCompleted:
		err = e.handler.OnComplete(ctx, outcome.SubjectID)
	case OutcomeFailed:
		err = e.handler.OnFail(ctx, outcome.SubjectID, outcome.Reason)
	}
	if err != nil {
		e.logger.Error("outcome handler failed",
			"subject", outcome.SubjectID, "kind", outcome.Kind, "error", err)
	}

	e.mu.Lock()
	if e.active == nil && e.phase == PhaseResolving {
		e.phase = PhaseIdle
	}
	e.mu.Unlock()

	e.logger.Info("timer resolved",
		"subject", outcome.SubjectID, "kind", outcome.Kind, "reason", outcome.Reason)
}

// Reconcile loads the persisted timer on process start and squares it with
// the clock before the tick loop begins. A timer whose grace window fully
// elapsed while the process was down resolves as failed right here, so a
// stale deadline is never shown as live. A timer whose draft vanished is
// cleared silently. Anything else resumes with its phase recomputed from
// the remaining time, so a status snapshot taken before any tick already
// matches the wall clock.
func (e *Engine) Reconcile(ctx context.Context) (*Outcome, error) {
	e.mu.Lock()

	record, err := e.store.Load()
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if record == nil {
		e.phase = PhaseIdle
		e.mu.Unlock()
		return nil, nil
	}

	if e.probe != nil && !e.probe.Exists(record.SubjectID) {
		// Nothing left to archive or delete, so no outcome either.
		if err := e.store.Save(nil); err != nil {
			e.mu.Unlock()
			return nil, err
		}
		e.active = nil
		e.phase = PhaseIdle
		e.mu.Unlock()
		e.logger.Warn("timed draft is gone, clearing stale timer", "subject", record.SubjectID)
		return nil, nil
	}

	now := e.clock.Now()
	e.active = record
	e.hasWarned = false
	e.graceDeadline = time.Time{}
	e.promptPending = false

	if now.After(record.ExpiresAt.Add(e.cfg.Grace)) {
		outcome, err := e.resolveLocked(now, OutcomeFailed, ReasonExpired)
		e.mu.Unlock()
		if err != nil {
			return nil, err
		}
		e.logger.Info("deadline passed while stopped", "subject", outcome.SubjectID)
		e.deliver(ctx, outcome)
		return outcome, nil
	}

	switch remaining := record.Remaining(now); {
	case remaining <= 0:
		// inside the grace window; the window restarts from now and the
		// first tick still owes the presenter its prompt
		e.phase = PhaseGrace
		e.graceDeadline = now.Add(e.cfg.Grace)
		e.promptPending = true
	case e.cfg.WarnThreshold > 0 && remaining <= e.cfg.WarnThreshold:
		e.phase = PhaseWarning
	default:
		e.phase = PhaseRunning
	}
	e.mu.Unlock()
	return nil, nil
}

// Status reports a snapshot of the engine for display purposes.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{Phase: e.phase}
	if e.active == nil {
		return s
	}
	record := *e.active
	s.Timer = &record
	remaining := record.Remaining(e.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	s.Remaining = formatClock(remaining)
	if e.phase == PhaseGrace {
		deadline := e.graceDeadline
		s.GraceDeadline = &deadline
	}
	return s
}

// formatClock renders a duration as m:ss (or h:mm:ss past the hour),
// clamped at zero.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

type nopPresenter struct{}

func (nopPresenter) RenderCountdown(string)                          {}
func (nopPresenter) NotifyWarning(string, time.Duration)             {}
func (nopPresenter) PromptGraceChoice(string, time.Duration, func()) {}
