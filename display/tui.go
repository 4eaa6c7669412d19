package display

import (
	"fmt"
	"image/color"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/viperML/bms-lock/bluetooth"
)

var (
	tuiBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)
	tuiTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))
	tuiMutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
	tuiHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

type statusMsg bluetooth.Status

type tuiModel struct {
	title  string
	status bluetooth.Status
	width  int
}

func newTUIModel(title string, initial bluetooth.Status) tuiModel {
	return tuiModel{title: title, status: initial}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case statusMsg:
		m.status = bluetooth.Status(msg)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	f := Layout(m.status, m.title)
	statusStyle := lipgloss.NewStyle().Bold(true).Foreground(hexColor(f.Color))

	var b strings.Builder
	b.WriteString(tuiTitleStyle.Render(f.Title))
	b.WriteString("\n\n")
	b.WriteString(tuiMutedStyle.Render(f.Target))
	b.WriteString("\n")
	b.WriteString(tuiMutedStyle.Render(f.Attempts))
	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render("● " + f.StatusText))
	if f.Detail != "" {
		b.WriteString("\n")
		b.WriteString(f.Detail)
	}
	b.WriteString("\n\n")
	b.WriteString(f.Instruction)

	return tuiBoxStyle.Render(b.String()) + "\n" + tuiHelpStyle.Render("q: quit") + "\n"
}

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// TUI shows the status screen in the terminal. It is an Observer; statuses are forwarded into the
// bubbletea program.
type TUI struct {
	program *tea.Program
}

func NewTUI(title string, initial bluetooth.Status, opts ...tea.ProgramOption) *TUI {
	return &TUI{program: tea.NewProgram(newTUIModel(title, initial), opts...)}
}

// Run blocks until the user quits or Quit is called.
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

func (t *TUI) Quit() { t.program.Quit() }

func (t *TUI) Observe(s bluetooth.Status) {
	t.program.Send(statusMsg(s))
}
