package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/forfeit-cli/forfeit/internal/meta"
	"github.com/forfeit-cli/forfeit/internal/timer"
)

// StreamPresenter is the non interactive presentation adapter. It writes a
// line whenever the countdown text changes, which keeps piped or redirected
// watch output readable instead of emitting sixty identical lines a minute.
type StreamPresenter struct {
	out io.Writer

	mu   sync.Mutex
	last string
}

func NewStreamPresenter(out io.Writer) *StreamPresenter {
	return &StreamPresenter{out: out}
}

func (p *StreamPresenter) RenderCountdown(display string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if display == p.last {
		return
	}
	p.last = display
	fmt.Fprintln(p.out, display)
}

func (p *StreamPresenter) NotifyWarning(subjectID string, remaining time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "warning: %s left on %s\n",
		remaining.Round(time.Second), filepath.Base(subjectID))
}

// PromptGraceChoice cannot collect a key press on a plain stream, so it
// points at the complete command instead. The callback is left to the
// interactive UI and to the command surface.
func (p *StreamPresenter) PromptGraceChoice(subjectID string, window time.Duration, _ func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "time is up on %s: run '%s complete' within %s or the draft is forfeited\n",
		filepath.Base(subjectID), meta.CLIName, window.Round(time.Second))
}

var _ timer.Presenter = (*StreamPresenter)(nil)
