package timer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

type recordingHandler struct {
	mu        sync.Mutex
	completes []string
	fails     []string
	reasons   []FailReason
	err       error
}

func (h *recordingHandler) OnComplete(_ context.Context, subjectID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completes = append(h.completes, subjectID)
	return h.err
}

func (h *recordingHandler) OnFail(_ context.Context, subjectID string, reason FailReason) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fails = append(h.fails, subjectID)
	h.reasons = append(h.reasons, reason)
	return h.err
}

func (h *recordingHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.completes) + len(h.fails)
}

type recordingPresenter struct {
	mu        sync.Mutex
	renders   []string
	warnings  int
	prompts   int
	graceLeft time.Duration
	choice    func()
}

func (p *recordingPresenter) RenderCountdown(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renders = append(p.renders, text)
}

func (p *recordingPresenter) NotifyWarning(string, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warnings++
}

func (p *recordingPresenter) PromptGraceChoice(_ string, remaining time.Duration, completeNow func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts++
	p.graceLeft = remaining
	p.choice = completeNow
}

// flakyStore fails saves on demand to exercise the persistence error path.
type flakyStore struct {
	inner   Store
	failing bool
}

func (s *flakyStore) Load() (*ActiveTimer, error) { return s.inner.Load() }

func (s *flakyStore) Save(record *ActiveTimer) error {
	if s.failing {
		return errors.New("disk full")
	}
	return s.inner.Save(record)
}

type memStore struct {
	mu     sync.Mutex
	record *ActiveTimer
}

func (s *memStore) Load() (*ActiveTimer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil, nil
	}
	rv := *s.record
	return &rv, nil
}

func (s *memStore) Save(record *ActiveTimer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record == nil {
		s.record = nil
		return nil
	}
	rv := *record
	s.record = &rv
	return nil
}

type fixture struct {
	engine    *Engine
	clock     *ManualClock
	store     *memStore
	handler   *recordingHandler
	presenter *recordingPresenter
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		clock:     NewManualClock(testEpoch),
		store:     &memStore{},
		handler:   &recordingHandler{},
		presenter: &recordingPresenter{},
	}
	engine, err := NewEngine(EngineOptions{
		Clock:     f.clock,
		Store:     f.store,
		Config:    cfg,
		Handler:   f.handler,
		Presenter: f.presenter,
	})
	require.NoError(t, err)
	f.engine = engine
	return f
}

func TestStartThenTickIsRunning(t *testing.T) {
	f := newFixture(t, Config{WarnThreshold: time.Minute, Grace: 10 * time.Second})

	record, err := f.engine.Start("draft.md", 25*time.Minute)
	require.NoError(t, err)
	require.Equal(t, "draft.md", record.SubjectID)
	require.True(t, record.ExpiresAt.After(record.CreatedAt))

	res, err := f.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseRunning, res.Phase)
	assert.Equal(t, 25*time.Minute, res.Remaining)
	assert.Equal(t, "25:00", res.Display)
	assert.False(t, res.Warned)
}

func TestStartWhileActiveFails(t *testing.T) {
	f := newFixture(t, Config{})

	first, err := f.engine.Start("draft.md", 10*time.Minute)
	require.NoError(t, err)

	_, err = f.engine.Start("other.md", 5*time.Minute)
	require.ErrorIs(t, err, ErrAlreadyActive)

	persisted, err := f.store.Load()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, first.ID, persisted.ID)
	assert.Equal(t, "draft.md", persisted.SubjectID)
}

func TestStartRejectsNonPositiveDuration(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.engine.Start("draft.md", 0)
	require.ErrorIs(t, err, ErrInvalidDuration)
	_, err = f.engine.Start("draft.md", -time.Minute)
	require.ErrorIs(t, err, ErrInvalidDuration)

	res, err := f.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, res.Phase)
	assert.Equal(t, "no active timer", res.Display)
}

func TestWarningFiresExactlyOnce(t *testing.T) {
	f := newFixture(t, Config{WarnThreshold: time.Minute, Grace: 10 * time.Second})

	_, err := f.engine.Start("draft.md", 5*time.Minute)
	require.NoError(t, err)

	f.clock.Advance(4*time.Minute + 30*time.Second)
	res, err := f.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseWarning, res.Phase)
	assert.True(t, res.Warned)

	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Second)
		res, err = f.engine.Tick(context.Background())
		require.NoError(t, err)
		assert.False(t, res.Warned)
	}
	assert.Equal(t, 1, f.presenter.warnings)
}

func TestZeroGraceResolvesImmediately(t *testing.T) {
	f := newFixture(t, Config{WarnThreshold: time.Minute})

	_, err := f.engine.Start("draft.md", 2*time.Minute)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	res, err := f.engine.Tick(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Outcome)
	assert.Equal(t, OutcomeFailed, res.Outcome.Kind)
	assert.Equal(t, ReasonExpired, res.Outcome.Reason)
	assert.Equal(t, 0, f.presenter.prompts)
	assert.Equal(t, []string{"draft.md"}, f.handler.fails)

	persisted, err := f.store.Load()
	require.NoError(t, err)
	assert.Nil(t, persisted)
}

func TestGraceWindowAllowsCompletion(t *testing.T) {
	f := newFixture(t, Config{WarnThreshold: 30 * time.Second, Grace: 10 * time.Second})

	_, err := f.engine.Start("draft.md", time.Minute)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	res, err := f.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseGrace, res.Phase)
	assert.True(t, res.GraceEntered)
	require.Equal(t, 1, f.presenter.prompts)
	assert.Equal(t, 10*time.Second, f.presenter.graceLeft)

	// prompt is a one-time notification, not re-rendered by tick
	f.clock.Advance(3 * time.Second)
	res, err = f.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, res.GraceEntered)
	assert.Equal(t, 1, f.presenter.prompts)

	outcome, err := f.engine.Complete(context.Background(), "draft.md")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome.Kind)
	assert.Equal(t, []string{"draft.md"}, f.handler.completes)
	assert.Empty(t, f.handler.fails)
}

func TestGraceExpiryFails(t *testing.T) {
	f := newFixture(t, Config{Grace: 10 * time.Second})

	_, err := f.engine.Start("draft.md", time.Minute)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.engine.Tick(context.Background())
	require.NoError(t, err)

	f.clock.Advance(10 * time.Second)
	res, err := f.engine.Tick(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Outcome)
	assert.Equal(t, OutcomeFailed, res.Outcome.Kind)
	assert.Equal(t, ReasonExpired, res.Outcome.Reason)
	assert.Equal(t, []FailReason{ReasonExpired}, f.handler.reasons)
}

func TestGracePromptCallbackCompletes(t *testing.T) {
	f := newFixture(t, Config{Grace: 10 * time.Second})

	_, err := f.engine.Start("draft.md", time.Minute)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.engine.Tick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, f.presenter.choice)

	f.presenter.choice()
	assert.Equal(t, []string{"draft.md"}, f.handler.completes)

	// the capability is single-shot; firing it again is a no-op
	f.presenter.choice()
	assert.Equal(t, 1, f.handler.calls())
}

func TestCancelFromAnyState(t *testing.T) {
	f := newFixture(t, Config{Grace: 10 * time.Second})

	_, err := f.engine.Start("draft.md", time.Minute)
	require.NoError(t, err)

	outcome, err := f.engine.Fail(context.Background(), "", ReasonCancelled)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Equal(t, ReasonCancelled, outcome.Reason)

	_, err = f.engine.Fail(context.Background(), "", ReasonCancelled)
	require.ErrorIs(t, err, ErrNoActiveTimer)
}

func TestCompleteWrongSubject(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.engine.Start("draft.md", time.Minute)
	require.NoError(t, err)

	_, err = f.engine.Complete(context.Background(), "other.md")
	require.ErrorIs(t, err, ErrNoActiveTimer)
	assert.Equal(t, 0, f.handler.calls())
}

func TestConcurrentResolutionSingleFlight(t *testing.T) {
	f := newFixture(t, Config{Grace: 5 * time.Second})

	_, err := f.engine.Start("draft.md", time.Minute)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.engine.Tick(context.Background())
	require.NoError(t, err)

	// grace deadline and the user's complete race on the same instant
	f.clock.Advance(5 * time.Second)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = f.engine.Tick(context.Background())
	}()
	go func() {
		defer wg.Done()
		_, _ = f.engine.Complete(context.Background(), "draft.md")
	}()
	wg.Wait()

	assert.Equal(t, 1, f.handler.calls(), "exactly one outcome per timer")

	persisted, err := f.store.Load()
	require.NoError(t, err)
	assert.Nil(t, persisted)
}

func TestShortDurationWarnsAndExpiresSameRun(t *testing.T) {
	// duration == warn threshold: warning fires immediately, grace at the
	// deadline, failure once grace lapses with no action taken
	f := newFixture(t, Config{WarnThreshold: time.Minute, Grace: 10 * time.Second})

	_, err := f.engine.Start("draft.md", time.Minute)
	require.NoError(t, err)

	res, err := f.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseWarning, res.Phase)
	assert.True(t, res.Warned)
	assert.Equal(t, 1, f.presenter.warnings)

	f.clock.Advance(time.Minute)
	res, err = f.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseGrace, res.Phase)
	assert.Equal(t, 1, f.presenter.prompts)
	assert.Equal(t, 1, f.presenter.warnings)

	f.clock.Advance(10 * time.Second)
	res, err = f.engine.Tick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, ReasonExpired, res.Outcome.Reason)
}

func TestStartPersistenceFailureLeavesIdle(t *testing.T) {
	f := newFixture(t, Config{})
	flaky := &flakyStore{inner: f.store, failing: true}
	engine, err := NewEngine(EngineOptions{
		Clock:   f.clock,
		Store:   flaky,
		Handler: f.handler,
	})
	require.NoError(t, err)

	_, err = engine.Start("draft.md", time.Minute)
	require.Error(t, err)

	res, err := engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, res.Phase)
}

func TestResolvePersistenceFailureKeepsTimer(t *testing.T) {
	clock := NewManualClock(testEpoch)
	inner := &memStore{}
	flaky := &flakyStore{inner: inner}
	handler := &recordingHandler{}
	engine, err := NewEngine(EngineOptions{
		Clock:   clock,
		Store:   flaky,
		Handler: handler,
	})
	require.NoError(t, err)

	_, err = engine.Start("draft.md", time.Minute)
	require.NoError(t, err)

	flaky.failing = true
	_, err = engine.Complete(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, 0, handler.calls(), "handler must not fire when the clear did not commit")

	// store recovers; the same timer is still resolvable
	flaky.failing = false
	outcome, err := engine.Complete(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome.Kind)
	assert.Equal(t, 1, handler.calls())
}

func TestTickSurvivesResolveFailure(t *testing.T) {
	clock := NewManualClock(testEpoch)
	inner := &memStore{}
	flaky := &flakyStore{inner: inner}
	handler := &recordingHandler{}
	engine, err := NewEngine(EngineOptions{
		Clock:   clock,
		Store:   flaky,
		Handler: handler,
	})
	require.NoError(t, err)

	_, err = engine.Start("draft.md", time.Minute)
	require.NoError(t, err)

	flaky.failing = true
	clock.Advance(time.Minute)
	_, err = engine.Tick(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, handler.calls())

	flaky.failing = false
	clock.Advance(time.Second)
	res, err := engine.Tick(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, 1, handler.calls())
}

func TestStatusSnapshot(t *testing.T) {
	f := newFixture(t, Config{WarnThreshold: time.Minute, Grace: 10 * time.Second})

	s := f.engine.Status()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Nil(t, s.Timer)

	_, err := f.engine.Start("draft.md", 10*time.Minute)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	s = f.engine.Status()
	assert.Equal(t, PhaseRunning, s.Phase)
	require.NotNil(t, s.Timer)
	assert.Equal(t, "draft.md", s.Timer.SubjectID)
	assert.Equal(t, "9:00", s.Remaining)
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "0:00"},
		{0, "0:00"},
		{7 * time.Second, "0:07"},
		{25 * time.Minute, "25:00"},
		{90*time.Minute + 5*time.Second, "1:30:05"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, formatClock(c.in), "formatClock(%s)", c.in)
	}
}
