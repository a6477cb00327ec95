package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProbe struct {
	exists bool
}

func (p fakeProbe) Exists(string) bool { return p.exists }

func seedRecord(t *testing.T, store Store, subject string, createdAgo, expiresIn time.Duration) *ActiveTimer {
	t.Helper()
	record := &ActiveTimer{
		ID:        "seeded",
		SubjectID: subject,
		CreatedAt: testEpoch.Add(-createdAgo),
		ExpiresAt: testEpoch.Add(expiresIn),
	}
	require.NoError(t, store.Save(record))
	return record
}

func reconcileFixture(t *testing.T, cfg Config, probe SubjectProbe) *fixture {
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
		Probe:     probe,
	})
	require.NoError(t, err)
	f.engine = engine
	return f
}

func TestReconcileNothingPersisted(t *testing.T) {
	f := reconcileFixture(t, Config{}, nil)

	outcome, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, PhaseIdle, f.engine.Status().Phase)
}

func TestReconcileResumesRunning(t *testing.T) {
	f := reconcileFixture(t, Config{WarnThreshold: time.Minute, Grace: 10 * time.Second}, fakeProbe{exists: true})
	seedRecord(t, f.store, "draft.md", 5*time.Minute, 20*time.Minute)

	outcome, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, outcome)

	res, err := f.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseRunning, res.Phase)
	assert.Equal(t, 20*time.Minute, res.Remaining)
	assert.Equal(t, 0, f.handler.calls())
}

func TestReconcileGraceFullyElapsed(t *testing.T) {
	f := reconcileFixture(t, Config{Grace: 10 * time.Second}, fakeProbe{exists: true})
	// deadline and grace both passed while the process was down
	seedRecord(t, f.store, "draft.md", time.Hour, -time.Minute)

	outcome, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	require.NotNil(t, outcome, "stale timer must resolve before the tick loop starts")
	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Equal(t, ReasonExpired, outcome.Reason)
	assert.Equal(t, []string{"draft.md"}, f.handler.fails)

	persisted, err := f.store.Load()
	require.NoError(t, err)
	assert.Nil(t, persisted)
	assert.Equal(t, PhaseIdle, f.engine.Status().Phase)
}

func TestReconcileWithinGraceResumes(t *testing.T) {
	f := reconcileFixture(t, Config{Grace: time.Minute}, fakeProbe{exists: true})
	// expired 30s ago but the 60s grace window is still open
	seedRecord(t, f.store, "draft.md", time.Hour, -30*time.Second)

	outcome, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, 0, f.handler.calls())

	// the snapshot reflects the wall clock before any tick runs
	status := f.engine.Status()
	assert.Equal(t, PhaseGrace, status.Phase)
	require.NotNil(t, status.GraceDeadline)
	assert.True(t, status.GraceDeadline.Equal(testEpoch.Add(time.Minute)))

	res, err := f.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseGrace, res.Phase)
	assert.True(t, res.GraceEntered)
	assert.Equal(t, 1, f.presenter.prompts)

	// the prompt fires once, not on every grace tick
	f.clock.Advance(time.Second)
	res, err = f.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, res.GraceEntered)
	assert.Equal(t, 1, f.presenter.prompts)
}

func TestReconcileInsideWarnWindowShowsWarning(t *testing.T) {
	f := reconcileFixture(t, Config{WarnThreshold: 5 * time.Minute, Grace: time.Minute}, fakeProbe{exists: true})
	// three minutes left, inside the five minute warning threshold
	seedRecord(t, f.store, "draft.md", time.Hour, 3*time.Minute)

	outcome, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, PhaseWarning, f.engine.Status().Phase)

	res, err := f.engine.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseWarning, res.Phase)
	assert.True(t, res.Warned, "the warning still notifies once after a restart")
	assert.Equal(t, 1, f.presenter.warnings)
}

func TestReconcileSubjectGone(t *testing.T) {
	f := reconcileFixture(t, Config{Grace: 10 * time.Second}, fakeProbe{exists: false})
	seedRecord(t, f.store, "draft.md", time.Hour, -time.Hour)

	outcome, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.Equal(t, 0, f.handler.calls(), "nothing to archive or delete")

	persisted, err := f.store.Load()
	require.NoError(t, err)
	assert.Nil(t, persisted)
	assert.Equal(t, PhaseIdle, f.engine.Status().Phase)
}
