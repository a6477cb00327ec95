package timer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Phase is the engine's view of where the active deadline sits. It is
// recomputed from the persisted record plus the clock on every tick; only
// the warning latch and the grace deadline survive between ticks.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseWarning   Phase = "warning"
	PhaseGrace     Phase = "grace"
	PhaseResolving Phase = "resolving"
)

// FailReason distinguishes a deadline that ran out from a user abandoning
// the draft on purpose.
type FailReason string

const (
	ReasonExpired   FailReason = "expired"
	ReasonCancelled FailReason = "cancelled"
)

// OutcomeKind is the terminal result of a timer.
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome records how a timer resolved. Exactly one Outcome is produced
// per ActiveTimer.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"       yaml:"kind"`
	SubjectID  string      `json:"subject_id" yaml:"subject_id"`
	Reason     FailReason  `json:"reason,omitempty" yaml:"reason,omitempty"`
	ResolvedAt time.Time   `json:"resolved_at" yaml:"resolved_at"`
}

var (
	// ErrAlreadyActive is returned by Start while a timer exists. Only one
	// draft may be under deadline at a time.
	ErrAlreadyActive = errors.New("a timer is already active")
	// ErrInvalidDuration is returned by Start for non-positive durations.
	ErrInvalidDuration = errors.New("duration must be positive")
	// ErrNoActiveTimer is returned by Complete/Fail when there is nothing to
	// resolve, including when a concurrent resolution won the race.
	ErrNoActiveTimer = errors.New("no active timer")
	// ErrSubjectMissing indicates the timed draft vanished externally.
	ErrSubjectMissing = errors.New("timed subject no longer exists")
	// ErrPersistence wraps state store read/write failures. An operation
	// that hits one is reported as not having taken effect.
	ErrPersistence = errors.New("timer state could not be persisted")
)

// ActiveTimer is the single persisted record describing the current
// deadline and its subject. It is immutable once written; the engine
// replaces it wholesale or clears it.
type ActiveTimer struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Remaining returns the time left before expiry at the given instant.
// Negative values mean the deadline has passed.
func (t *ActiveTimer) Remaining(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}

// Validate rejects records that no consistent save could have produced.
func (t *ActiveTimer) Validate() error {
	if t.SubjectID == "" {
		return fmt.Errorf("timer record has no subject")
	}
	if !t.ExpiresAt.After(t.CreatedAt) {
		return fmt.Errorf("timer record expires at or before its creation (%s <= %s)",
			t.ExpiresAt.Format(time.RFC3339), t.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// Store is the durable home of the single ActiveTimer. Save(nil) clears
// the record. Implementations must be atomic: a crash mid-save never
// leaves a half-written record behind.
type Store interface {
	Load() (*ActiveTimer, error)
	Save(*ActiveTimer) error
}

// Handler receives terminal transitions. It is invoked at most once per
// ActiveTimer, after the store has already been cleared; its failures are
// logged by the engine and never re-open the timer.
type Handler interface {
	OnComplete(ctx context.Context, subjectID string) error
	OnFail(ctx context.Context, subjectID string, reason FailReason) error
}

// Presenter is the display sink driven by the tick loop.
//
// PromptGraceChoice hands over a single-shot completeNow capability; the
// presenter must invoke it asynchronously (e.g. from a key handler), never
// from inside the PromptGraceChoice call itself.
type Presenter interface {
	RenderCountdown(text string)
	NotifyWarning(subjectID string, remaining time.Duration)
	PromptGraceChoice(subjectID string, remaining time.Duration, completeNow func())
}

// SubjectProbe answers whether the timed content still exists. Used during
// restart reconciliation to degrade a timer whose draft is gone into a
// silent reset instead of a failure.
type SubjectProbe interface {
	Exists(subjectID string) bool
}

// Config is the immutable snapshot of timer tuning handed to the engine
// at construction time.
type Config struct {
	// DefaultDuration applies when start is issued without a duration.
	DefaultDuration time.Duration
	// WarnThreshold is how far before expiry the one-time warning fires.
	// Zero disables the warning.
	WarnThreshold time.Duration
	// Grace is the post-expiry window in which the user may still
	// complete. Zero resolves straight to failure on expiry.
	Grace time.Duration
}

// TickResult reports what a single tick observed and caused.
type TickResult struct {
	Phase     Phase
	SubjectID string
	Remaining time.Duration
	Display   string
	// Warned is true only on the tick that raised the low-time warning.
	Warned bool
	// GraceEntered is true only on the tick that opened the grace window.
	GraceEntered bool
	// Outcome is non-nil when this tick resolved the timer.
	Outcome *Outcome
}

// Status is a point-in-time snapshot for the status command.
type Status struct {
	Phase         Phase        `json:"phase"          yaml:"phase"`
	Timer         *ActiveTimer `json:"timer,omitempty" yaml:"timer,omitempty"`
	Remaining     string       `json:"remaining,omitempty" yaml:"remaining,omitempty"`
	GraceDeadline *time.Time   `json:"grace_deadline,omitempty" yaml:"grace_deadline,omitempty"`
}
