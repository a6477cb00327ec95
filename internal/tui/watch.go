// Package tui renders the live countdown for the watch command. The
// engine stays authoritative for all timing decisions; the model only
// consumes tick results and routes key presses back into the engine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/forfeit-cli/forfeit/internal/iostreams"
	"github.com/forfeit-cli/forfeit/internal/timer"
)

type tickMsg time.Time

type tickResultMsg struct {
	res timer.TickResult
	err error
}

type resolvedMsg struct {
	outcome *timer.Outcome
	err     error
}

// KeyMap holds the watch key bindings.
type KeyMap struct {
	Complete key.Binding
	Cancel   key.Binding
	Quit     key.Binding
}

func defaultKeyMap() KeyMap {
	return KeyMap{
		Complete: key.NewBinding(
			key.WithKeys("enter", "f"),
			key.WithHelp("enter/f", "finish now"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel (forfeits the draft)"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit (deadline keeps running)"),
		),
	}
}

// Styles carries the lipgloss styling for each phase.
type Styles struct {
	Title    lipgloss.Style
	Subject  lipgloss.Style
	Running  lipgloss.Style
	Warning  lipgloss.Style
	Grace    lipgloss.Style
	Outcome  lipgloss.Style
	Help     lipgloss.Style
	ErrorHue lipgloss.Style
}

func defaultStyles(useColor bool) Styles {
	if !useColor {
		plain := lipgloss.NewStyle()
		return Styles{
			Title: plain, Subject: plain, Running: plain, Warning: plain,
			Grace: plain, Outcome: plain, Help: plain, ErrorHue: plain,
		}
	}
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true),
		Subject:  lipgloss.NewStyle().Faint(true),
		Running:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "76"}),
		Warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "130", Dark: "214"}),
		Grace:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}),
		Outcome:  lipgloss.NewStyle().Bold(true),
		Help:     lipgloss.NewStyle().Faint(true),
		ErrorHue: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}),
	}
}

// Model is the bubbletea model for the watch command.
type Model struct {
	ctx    context.Context
	engine *timer.Engine

	keys   KeyMap
	styles Styles
	width  int

	phase   timer.Phase
	subject string
	display string
	inGrace bool
	tickErr error
	outcome *timer.Outcome
}

func NewModel(ctx context.Context, engine *timer.Engine, useColor bool) Model {
	return Model{
		ctx:     ctx,
		engine:  engine,
		keys:    defaultKeyMap(),
		styles:  defaultStyles(useColor),
		phase:   timer.PhaseIdle,
		display: "no active timer",
	}
}

func (m Model) Init() tea.Cmd {
	// drive the first tick immediately so the countdown shows up without
	// a one second wait
	return m.doTick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		return m, m.doTick

	case tickResultMsg:
		m.tickErr = msg.err
		m.phase = msg.res.Phase
		m.display = msg.res.Display
		if msg.res.SubjectID != "" {
			m.subject = msg.res.SubjectID
		}
		if msg.res.GraceEntered {
			m.inGrace = true
		}
		if msg.res.Outcome != nil {
			m.outcome = msg.res.Outcome
			return m, tea.Quit
		}
		return m, nextTick()

	case resolvedMsg:
		if msg.err != nil {
			// losing the race to the tick loop is not an error worth
			// surfacing; the tick result carries the outcome
			if errors.Is(msg.err, timer.ErrNoActiveTimer) {
				return m, nil
			}
			m.tickErr = msg.err
			return m, nil
		}
		m.outcome = msg.outcome
		return m, tea.Quit

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Complete):
			return m, m.complete
		case key.Matches(msg, m.keys.Cancel):
			return m, m.cancel
		}
	}
	return m, nil
}

func (m Model) doTick() tea.Msg {
	res, err := m.engine.Tick(m.ctx)
	return tickResultMsg{res: res, err: err}
}

func (m Model) complete() tea.Msg {
	outcome, err := m.engine.Complete(m.ctx, "")
	return resolvedMsg{outcome: outcome, err: err}
}

func (m Model) cancel() tea.Msg {
	outcome, err := m.engine.Fail(m.ctx, "", timer.ReasonCancelled)
	return resolvedMsg{outcome: outcome, err: err}
}

func nextTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) View() string {
	if m.outcome != nil {
		return m.styles.Outcome.Render(outcomeLine(m.outcome)) + "\n"
	}

	countdown := m.styles.Running
	switch m.phase {
	case timer.PhaseWarning:
		countdown = m.styles.Warning
	case timer.PhaseGrace:
		countdown = m.styles.Grace
	}

	title := m.styles.Title.Render("forfeit")
	subject := ""
	if m.subject != "" {
		subject = m.styles.Subject.Render(trimToWidth(filepath.Base(m.subject), m.width))
	}

	lines := title
	if subject != "" {
		lines += "  " + subject
	}
	lines += "\n\n  " + countdown.Render(m.display) + "\n"

	if m.inGrace && m.phase == timer.PhaseGrace {
		lines += "\n" + m.styles.Grace.Render("  last chance:") + " " +
			m.styles.Help.Render(m.keys.Complete.Help().Key+" to "+m.keys.Complete.Help().Desc) + "\n"
	}
	if m.tickErr != nil {
		lines += "\n" + m.styles.ErrorHue.Render(trimToWidth("  "+m.tickErr.Error(), m.width)) + "\n"
	}

	help := fmt.Sprintf("  %s · %s · %s",
		m.keys.Complete.Help().Key+" "+m.keys.Complete.Help().Desc,
		m.keys.Cancel.Help().Key+" "+m.keys.Cancel.Help().Desc,
		m.keys.Quit.Help().Key+" "+m.keys.Quit.Help().Desc)
	lines += "\n" + m.styles.Help.Render(trimToWidth(help, m.width)) + "\n"
	return lines
}

func outcomeLine(outcome *timer.Outcome) string {
	switch outcome.Kind {
	case timer.OutcomeCompleted:
		return "finished in time, the draft is yours"
	default:
		if outcome.Reason == timer.ReasonCancelled {
			return "cancelled, the draft has been forfeited"
		}
		return "time ran out, the draft has been forfeited"
	}
}

func trimToWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

// Run drives the watch UI until the timer resolves or the user quits.
// A nil outcome means the user left with the deadline still running.
func Run(ctx context.Context, engine *timer.Engine, streams *iostreams.IOStreams, useColor bool) (*timer.Outcome, error) {
	p := tea.NewProgram(NewModel(ctx, engine, useColor),
		tea.WithContext(ctx),
		tea.WithInput(streams.In),
		tea.WithOutput(streams.Out),
	)
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(Model); ok {
		return m.outcome, nil
	}
	return nil, nil
}
