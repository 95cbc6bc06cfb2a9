package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/napi-runtime/scenario"
)

var (
	inspectTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)

	inspectSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4"))

	inspectOKStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	inspectFailStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF6B6B"))

	inspectEventStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#87CEEB"))

	inspectStateStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#666666")).
				Padding(0, 1)
)

const stepWindow = 10

type inspectKeys struct {
	Prev  key.Binding
	Next  key.Binding
	First key.Binding
	Last  key.Binding
	Fail  key.Binding
	Jump  key.Binding
	Quit  key.Binding
}

func (k inspectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Fail, k.Jump, k.Quit}
}

func (k inspectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Prev, k.Next, k.First, k.Last}, {k.Fail, k.Jump, k.Quit}}
}

var defaultInspectKeys = inspectKeys{
	Prev:  key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous step")),
	Next:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next step")),
	First: key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
	Last:  key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),
	Fail:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "next failure")),
	Jump:  key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "jump to step")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type inspectModel struct {
	trace    *scenario.Trace
	keys     inspectKeys
	help     help.Model
	state    viewport.Model
	jump     textinput.Model
	err      error
	cursor   int
	jumping  bool
	quitting bool
}

func newInspectModel(trace *scenario.Trace) *inspectModel {
	ti := textinput.New()
	ti.Prompt = "step: "
	ti.Placeholder = "1"
	ti.Width = 8
	ti.CharLimit = 6

	m := &inspectModel{
		trace: trace,
		keys:  defaultInspectKeys,
		help:  help.New(),
		state: viewport.New(80, 16),
		jump:  ti,
	}
	m.refresh()
	return m
}

func (m *inspectModel) Init() tea.Cmd {
	return nil
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.state.Width = msg.Width - 4
		if h := msg.Height - stepWindow - 8; h > 4 {
			m.state.Height = h
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.jumping {
			return m.updateJump(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Prev):
			m.move(m.cursor - 1)
		case key.Matches(msg, m.keys.Next):
			m.move(m.cursor + 1)
		case key.Matches(msg, m.keys.First):
			m.move(0)
		case key.Matches(msg, m.keys.Last):
			m.move(len(m.trace.Steps) - 1)
		case key.Matches(msg, m.keys.Fail):
			m.nextFailure()
		case key.Matches(msg, m.keys.Jump):
			m.jumping = true
			m.err = nil
			m.jump.SetValue("")
			return m, m.jump.Focus()
		default:
			var cmd tea.Cmd
			m.state, cmd = m.state.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *inspectModel) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.jumping = false
		m.jump.Blur()
		return m, nil
	case tea.KeyEnter:
		m.jumping = false
		m.jump.Blur()
		n, err := strconv.Atoi(strings.TrimSpace(m.jump.Value()))
		if err != nil || n < 1 || n > len(m.trace.Steps) {
			m.err = fmt.Errorf("no step %q", m.jump.Value())
			return m, nil
		}
		m.move(n - 1)
		return m, nil
	}
	var cmd tea.Cmd
	m.jump, cmd = m.jump.Update(msg)
	return m, cmd
}

func (m *inspectModel) move(i int) {
	if i < 0 || i >= len(m.trace.Steps) {
		return
	}
	m.cursor = i
	m.refresh()
}

func (m *inspectModel) nextFailure() {
	n := len(m.trace.Steps)
	for off := 1; off <= n; off++ {
		i := (m.cursor + off) % n
		if m.trace.Steps[i].Failed {
			m.move(i)
			return
		}
	}
}

func (m *inspectModel) refresh() {
	if len(m.trace.Steps) == 0 {
		m.state.SetContent("(empty trace)")
		return
	}
	step := m.trace.Steps[m.cursor]
	var b strings.Builder
	b.WriteString(step.String())
	b.WriteString("\n")
	for _, ev := range step.Events {
		b.WriteString(inspectEventStyle.Render("  " + ev))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(formatState(step.State))
	m.state.SetContent(b.String())
	m.state.GotoTop()
}

func (m *inspectModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(inspectTitleStyle.Render("lifetrace"))
	b.WriteString(" ")
	b.WriteString(m.trace.Name)
	if failed := len(m.trace.Failures()); failed > 0 {
		b.WriteString("  ")
		b.WriteString(inspectFailStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	b.WriteString("\n\n")

	start := m.cursor - stepWindow/2
	if start > len(m.trace.Steps)-stepWindow {
		start = len(m.trace.Steps) - stepWindow
	}
	if start < 0 {
		start = 0
	}
	end := min(start+stepWindow, len(m.trace.Steps))
	for i := start; i < end; i++ {
		s := m.trace.Steps[i]
		line := fmt.Sprintf("%3d %-16s %s", s.Index, s.Op, s.Status)
		switch {
		case i == m.cursor:
			b.WriteString(inspectSelectedStyle.Render("> " + line))
		case s.Failed:
			b.WriteString(inspectFailStyle.Render("  " + line))
		default:
			b.WriteString(inspectOKStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(inspectStateStyle.Render(m.state.View()))
	b.WriteString("\n")

	switch {
	case m.jumping:
		b.WriteString(m.jump.View())
	case m.err != nil:
		b.WriteString(inspectFailStyle.Render(m.err.Error()))
	default:
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.toml|file.msgpack>",
		Short: "Step through a scenario trace interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectScenario,
	}
}

func inspectScenario(cmd *cobra.Command, args []string) error {
	if !isTerminal(os.Stdout) {
		return fmt.Errorf("inspect needs a terminal; use run instead")
	}

	runner, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	trace, err := loadTrace(runner, args[0])
	if err != nil {
		return err
	}

	p := tea.NewProgram(newInspectModel(trace), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
