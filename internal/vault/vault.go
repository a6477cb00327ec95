// Package vault is the host document store boundary: it owns what happens
// to the draft file once the engine reaches a terminal state. The engine
// only knows the Handler and SubjectProbe interfaces; everything here is
// plain filesystem work.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/forfeit-cli/forfeit/internal/timer"
)

// Policy selects what happens to a forfeited draft.
type Policy string

const (
	// PolicyArchive moves the draft into an archive/ directory next to it.
	PolicyArchive Policy = "archive"
	// PolicyTrash moves the draft into the vault's trash directory.
	PolicyTrash Policy = "trash"
	// PolicyDelete removes the draft permanently.
	PolicyDelete Policy = "delete"
)

// ParsePolicy validates a configured outcome policy string.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyArchive, PolicyTrash, PolicyDelete:
		return Policy(s), nil
	case "":
		return PolicyArchive, nil
	default:
		return "", fmt.Errorf("invalid outcome policy %q, must be one of %v",
			s, []Policy{PolicyArchive, PolicyTrash, PolicyDelete})
	}
}

const archiveDirName = "archive"

// Vault applies outcome policy to draft files. It implements both
// timer.Handler and timer.SubjectProbe.
type Vault struct {
	policy   Policy
	trashDir string
	clock    timer.Clock
	logger   *slog.Logger
}

type Options struct {
	Policy Policy
	// TrashDir is where PolicyTrash moves drafts. Required for that policy.
	TrashDir string
	Clock    timer.Clock
	Logger   *slog.Logger
}

func New(opts Options) *Vault {
	if opts.Policy == "" {
		opts.Policy = PolicyArchive
	}
	if opts.Clock == nil {
		opts.Clock = timer.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Vault{
		policy:   opts.Policy,
		trashDir: opts.TrashDir,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
}

// Exists reports whether the draft is still on disk.
func (v *Vault) Exists(subjectID string) bool {
	info, err := os.Stat(subjectID)
	return err == nil && !info.IsDir()
}

// OnComplete tags the finished draft with a completion marker and leaves
// it in place.
func (v *Vault) OnComplete(_ context.Context, subjectID string) error {
	marker := Marker{
		Outcome:    string(timer.OutcomeCompleted),
		ResolvedAt: v.clock.Now().UTC(),
	}
	if err := WriteMarker(subjectID, marker); err != nil {
		return fmt.Errorf("tag completed draft: %w", err)
	}
	v.logger.Info("draft completed", "subject", subjectID)
	return nil
}

// OnFail tags the draft with a failure marker and then applies the
// configured policy: archive beside the draft, move to trash, or delete.
func (v *Vault) OnFail(_ context.Context, subjectID string, reason timer.FailReason) error {
	marker := Marker{
		Outcome:    string(timer.OutcomeFailed),
		Reason:     string(reason),
		ResolvedAt: v.clock.Now().UTC(),
	}
	if err := WriteMarker(subjectID, marker); err != nil {
		// A draft we cannot tag can still be moved or deleted.
		v.logger.Warn("could not tag forfeited draft", "subject", subjectID, "error", err)
	}

	switch v.policy {
	case PolicyArchive:
		dest := filepath.Join(filepath.Dir(subjectID), archiveDirName)
		moved, err := moveInto(subjectID, dest)
		if err != nil {
			return fmt.Errorf("archive draft: %w", err)
		}
		v.logger.Info("draft archived", "subject", subjectID, "archived_to", moved, "reason", reason)
	case PolicyTrash:
		if v.trashDir == "" {
			return fmt.Errorf("trash policy configured without a trash directory")
		}
		moved, err := moveInto(subjectID, v.trashDir)
		if err != nil {
			return fmt.Errorf("trash draft: %w", err)
		}
		v.logger.Info("draft trashed", "subject", subjectID, "trashed_to", moved, "reason", reason)
	case PolicyDelete:
		if err := os.Remove(subjectID); err != nil {
			return fmt.Errorf("delete draft: %w", err)
		}
		v.logger.Info("draft deleted", "subject", subjectID, "reason", reason)
	default:
		return fmt.Errorf("unknown outcome policy %q", v.policy)
	}
	return nil
}

// moveInto moves path into dir, creating dir as needed and suffixing the
// name rather than overwriting anything already there.
func moveInto(path, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	base := filepath.Base(path)
	dest := filepath.Join(dir, base)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	for n := 1; ; n++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}

	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Marker is the terminal tag written into the draft's frontmatter.
type Marker struct {
	Outcome    string    `yaml:"outcome"`
	Reason     string    `yaml:"reason,omitempty"`
	ResolvedAt time.Time `yaml:"resolved_at"`
}
