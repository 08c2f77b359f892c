package main

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lox/rankmaster/cmd/rankmaster/shared"
	"github.com/lox/rankmaster/internal/blinds"
	"github.com/lox/rankmaster/internal/clock"
	"github.com/lox/rankmaster/internal/config"
)

// ClockCmd runs the blind clock as a full-screen terminal display.
type ClockCmd struct {
	Config    string `kong:"default='rankmaster.hcl',help='House configuration file'"`
	Structure string `kong:"help='Blind structure to run, defaults to the active one'"`
}

func (c *ClockCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	var structure blinds.Structure
	var ok bool
	if c.Structure != "" {
		structure, ok = cfg.StructureByName(c.Structure)
	} else {
		structure, ok = cfg.ActiveStructure()
	}
	if !ok {
		return fmt.Errorf("no blind structure to run; define one in %s", c.Config)
	}

	// The TUI owns the terminal; keep log output away from it.
	logger := shared.SetupLogger("error", false)

	relay := &eventRelay{}
	blindClock, err := clock.New(structure, nil, logger, clock.Events{
		Tick:             func(s clock.Snapshot) { relay.send(snapshotMsg(s)) },
		OneMinuteWarning: func(blinds.Level) { relay.send(warningMsg{}) },
		LevelChanged:     func(int, blinds.Level) { relay.send(levelChangedMsg{}) },
		Finished:         func() { relay.send(finishedMsg{}) },
	})
	if err != nil {
		return err
	}
	defer blindClock.Stop()

	model := newClockModel(blindClock, structure)
	program := tea.NewProgram(model, tea.WithAltScreen())
	relay.attach(program)

	_, err = program.Run()
	return err
}

// eventRelay forwards clock events into the bubbletea program once it
// exists. Events fired before attach are dropped; the model reads the
// initial snapshot itself.
type eventRelay struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *eventRelay) attach(p *tea.Program) {
	r.mu.Lock()
	r.p = p
	r.mu.Unlock()
}

func (r *eventRelay) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

type (
	snapshotMsg     clock.Snapshot
	warningMsg      struct{}
	levelChangedMsg struct{}
	finishedMsg     struct{}
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	warningTimeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF6B6B")).
				Bold(true)

	blindsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	breakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	nextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)
)

type clockModel struct {
	clock     *clock.Clock
	structure blinds.Structure
	snapshot  clock.Snapshot
	warning   bool
	finished  bool
}

func newClockModel(c *clock.Clock, structure blinds.Structure) clockModel {
	return clockModel{
		clock:     c,
		structure: structure,
		snapshot:  c.Snapshot(),
	}
}

func (m clockModel) Init() tea.Cmd {
	return nil
}

func (m clockModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.clock.Toggle()
		case "n":
			m.clock.Skip()
			m.warning = false
			m.finished = false
		case "p":
			m.clock.Back()
			m.warning = false
			m.finished = false
		case "r":
			m.clock.Reset()
			m.warning = false
			m.finished = false
		}
		m.snapshot = m.clock.Snapshot()

	case snapshotMsg:
		m.snapshot = clock.Snapshot(msg)
	case warningMsg:
		m.warning = true
	case levelChangedMsg:
		m.warning = false
		m.snapshot = m.clock.Snapshot()
	case finishedMsg:
		m.finished = true
		m.snapshot = m.clock.Snapshot()
	}
	return m, nil
}

func (m clockModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.structure.Name))
	b.WriteString("\n\n")

	level := m.clock.CurrentLevel()
	if level.IsBreak {
		b.WriteString(breakStyle.Render("BREAK"))
	} else {
		b.WriteString(blindsStyle.Render(fmt.Sprintf("Level %d   Blinds %d/%d", m.snapshot.LevelIndex+1, level.SmallBlind, level.BigBlind)))
		if level.Ante > 0 {
			b.WriteString(blindsStyle.Render(fmt.Sprintf("   Ante %d", level.Ante)))
		}
	}
	b.WriteString("\n\n")

	remaining := clock.FormatRemaining(m.snapshot.SecondsRemaining)
	switch {
	case m.finished:
		b.WriteString(warningTimeStyle.Render("FINISHED"))
	case m.warning:
		b.WriteString(warningTimeStyle.Render(remaining))
	default:
		b.WriteString(timeStyle.Render(remaining))
	}
	if !m.snapshot.IsRunning && !m.finished {
		b.WriteString("  ")
		b.WriteString(pausedStyle.Render("PAUSED"))
	}
	b.WriteString("\n\n")

	if next, ok := m.clock.NextLevel(); ok {
		if next.IsBreak {
			b.WriteString(nextStyle.Render("Next: break"))
		} else {
			b.WriteString(nextStyle.Render(fmt.Sprintf("Next: %d/%d", next.SmallBlind, next.BigBlind)))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("space pause/resume • n next • p previous • r reset • q quit"))
	return b.String()
}
