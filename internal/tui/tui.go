package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/idolab/internal/balance"
	"github.com/tatianab/idolab/internal/models"
	"github.com/tatianab/idolab/internal/narrator"
	"github.com/tatianab/idolab/internal/rules"
)

// Simulation is the engine surface the console drives.
type Simulation interface {
	Apply(rules.Action) (rules.Outcome, error)
	CurrentView() *models.World
}

// Restorer is implemented by simulations that can swap in a loaded world.
type Restorer interface {
	Restore(*models.World) error
}

// Press writes flavour text. It may be nil.
type Press interface {
	PressRelease(context.Context, *models.World, rules.Outcome) (narrator.Article, error)
	Recap(context.Context, *models.World) (narrator.Article, error)
}

const autosaveName = "autosave"

type model struct {
	sim     Simulation
	balance balance.Balance
	parser  rules.Parser
	press   Press

	textInput   textinput.Model
	viewport    viewport.Model
	gameLog     string
	width       int
	height      int
	lastOutcome *rules.Outcome
	busy        bool // waiting on the narrator
	autosave    bool
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	rejectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6F61"))

	pressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87D7AF")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

func NewModel(sim Simulation, b balance.Balance, press Press, autosave bool) model {
	ti := textinput.New()
	ti.Placeholder = "train 1 vocal, scout 2 300, advance, /help"
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 40

	m := model{
		sim:       sim,
		balance:   b,
		parser:    rules.NewParser(b),
		press:     press,
		textInput: ti,
		viewport:  viewport.New(80, 20),
		autosave:  autosave,
	}
	w := sim.CurrentView()
	m.appendLog(gameStyle.Bold(true).Render(w.Company.Name) + "\n" +
		gameStyle.Render(fmt.Sprintf("Turn %d, %s. Type /help for commands.", w.Calendar.Turn, w.Calendar.Phase)))
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

type pressMsg struct {
	article narrator.Article
	err     error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			line := strings.TrimSpace(m.textInput.Value())
			if line == "" {
				return m, nil
			}
			m.textInput.Reset()
			return m.handleLine(line)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 6
		m.viewport.SetContent(m.gameLog)

	case pressMsg:
		m.busy = false
		if msg.err != nil {
			m.appendLog(rejectStyle.Render("Press office error: " + msg.err.Error()))
			return m, nil
		}
		m.appendLog(pressStyle.Width(m.logWidth()).Render(msg.article.String()))
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// handleLine runs one line of input: a slash command or an action.
func (m model) handleLine(line string) (model, tea.Cmd) {
	m.appendLog(userStyle.Width(m.logWidth()).Render("> " + line))

	if strings.HasPrefix(line, "/") {
		return m.handleSlash(line)
	}

	a, err := m.parser.ParseCommand(line)
	if err != nil {
		m.appendLog(rejectStyle.Render(err.Error()))
		return m, nil
	}
	out, err := m.sim.Apply(a)
	if err != nil {
		var rv *rules.RuleViolation
		if errors.As(err, &rv) {
			m.appendLog(rejectStyle.Render("Rejected: " + rv.Error()))
		} else {
			m.appendLog(rejectStyle.Render(err.Error()))
		}
		return m, nil
	}

	m.lastOutcome = &out
	m.appendLog(gameStyle.Width(m.logWidth()).Render(out.Summary + "\n" + helpStyle.Render(out.Delta.String())))
	if m.autosave {
		if err := m.sim.CurrentView().Save(autosaveName); err != nil {
			m.appendLog(rejectStyle.Render("Autosave failed: " + err.Error()))
		}
	}
	return m, nil
}

func (m model) handleSlash(line string) (model, tea.Cmd) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		return m, tea.Quit

	case "/help":
		m.appendLog(helpText())

	case "/actions":
		var sb strings.Builder
		for _, c := range rules.Legal(m.sim.CurrentView(), m.balance) {
			fmt.Fprintf(&sb, "%-40s %s\n", c.Label, CommandFor(c.Action))
		}
		m.appendLog(strings.TrimRight(sb.String(), "\n"))

	case "/save":
		name := "current"
		if len(fields) > 1 {
			name = fields[1]
		}
		if err := m.sim.CurrentView().Save(name); err != nil {
			m.appendLog(rejectStyle.Render("Save failed: " + err.Error()))
		} else {
			m.appendLog(gameStyle.Render("Saved as " + name + "."))
		}

	case "/load":
		r, ok := m.sim.(Restorer)
		if !ok || len(fields) < 2 {
			m.appendLog(rejectStyle.Render("Usage: /load <name>"))
			return m, nil
		}
		w, err := models.LoadSession(fields[1])
		if err != nil {
			m.appendLog(rejectStyle.Render("Load failed: " + err.Error()))
			return m, nil
		}
		if err := r.Restore(w); err != nil {
			m.appendLog(rejectStyle.Render("Load failed: " + err.Error()))
			return m, nil
		}
		m.lastOutcome = nil
		m.appendLog(gameStyle.Render(fmt.Sprintf("Loaded %s: turn %d, %s.", fields[1], w.Calendar.Turn, w.Calendar.Phase)))

	case "/press", "/recap":
		if m.press == nil {
			m.appendLog(rejectStyle.Render("The press office is closed (set GEMINI_API_KEY)."))
			return m, nil
		}
		if m.busy {
			m.appendLog(helpStyle.Render("The press office is still writing."))
			return m, nil
		}
		if fields[0] == "/press" && m.lastOutcome == nil {
			m.appendLog(rejectStyle.Render("Nothing has happened yet."))
			return m, nil
		}
		m.busy = true
		m.appendLog(helpStyle.Render("Calling the press office..."))
		if fields[0] == "/recap" {
			return m, m.recap()
		}
		return m, m.pressRelease(*m.lastOutcome)

	default:
		m.appendLog(rejectStyle.Render("Unknown command " + fields[0] + ". Type /help."))
	}
	return m, nil
}

func (m *model) appendLog(s string) {
	if m.gameLog != "" {
		m.gameLog += "\n\n"
	}
	m.gameLog += s
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m model) logWidth() int {
	if m.width == 0 {
		return 80
	}
	return int(float64(m.width) * 0.75)
}

func (m model) View() string {
	mainView := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewport.View(),
		m.renderState(),
	)

	help := "Commands: /help, /actions, /save <name>, /load <name>, /press, /recap, /quit, or an action like 'train 1 vocal'."
	if m.busy {
		help = "Press office is writing..."
	}

	s := lipgloss.JoinVertical(lipgloss.Left,
		mainView,
		"\n"+m.textInput.View(),
		"\n"+helpStyle.Render(help),
	)
	return "\n" + s + "\n"
}

func (m model) renderState() string {
	w := m.sim.CurrentView()
	c := w.Company

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("AGENCY") + "\n")
	fmt.Fprintf(&sb, "%s\nTurn %d\n%s\n\n", c.Name, w.Calendar.Turn, w.Calendar.Phase)
	fmt.Fprintf(&sb, "Cash: %d", c.Cash)
	if c.InDebt {
		sb.WriteString(" (debt)")
	}
	fmt.Fprintf(&sb, "\nReputation: %d/%d\n\n", c.Reputation, m.balance.ReputationMax)

	sb.WriteString(titleStyle.Render("ROSTER") + "\n")
	active := w.ListTrainees(models.WithStatus(models.StatusTrainee, models.StatusDebuted))
	if len(active) == 0 {
		sb.WriteString("(empty)\n")
	}
	for _, t := range active {
		fmt.Fprintf(&sb, "%d %s [%s]\n  V%d D%d Vi%d S%d F%d R%d\n",
			t.ID, t.Name, t.Status,
			t.Skills.Vocal, t.Skills.Dance, t.Skills.Visual, t.Skills.Stamina, t.Fatigue, t.Relationship)
	}

	if w.Calendar.Phase == models.PhaseCEO {
		sb.WriteString("\n" + titleStyle.Render("CANDIDATES") + "\n")
		for _, cand := range rules.CandidatePool(w, m.balance) {
			fmt.Fprintf(&sb, "%d %s\n  V%d D%d Vi%d S%d\n", cand.Index, cand.Name,
				cand.Skills.Vocal, cand.Skills.Dance, cand.Skills.Visual, cand.Skills.Stamina)
		}
	}

	stateWidth := int(float64(m.width) * 0.23)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(sb.String())
}

// CommandFor renders a as the console command that parses back to it.
func CommandFor(a rules.Action) string {
	parts := []string{string(a.Kind())}
	spec, _ := rules.SpecFor(a.Kind())
	params := a.Params()
	for _, name := range spec.Params {
		parts = append(parts, params.Get(name))
	}
	return strings.Join(parts, " ")
}

func helpText() string {
	var sb strings.Builder
	sb.WriteString("Actions:\n")
	for _, s := range rules.Specs {
		usage := string(s.Kind)
		for _, p := range s.Params {
			usage += " <" + p + ">"
		}
		phases := make([]string, len(s.Phases))
		for i, p := range s.Phases {
			phases[i] = string(p)
		}
		fmt.Fprintf(&sb, "  %-32s %s (%s)\n", usage, s.Help, strings.Join(phases, ", "))
	}
	sb.WriteString("Arguments may also be given as name=value.\n")
	sb.WriteString("Commands: /actions lists what you can do now, /save <name>, /load <name>, /press, /recap, /quit.")
	return sb.String()
}

func (m model) pressRelease(out rules.Outcome) tea.Cmd {
	w := m.sim.CurrentView()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a, err := m.press.PressRelease(ctx, w, out)
		return pressMsg{a, err}
	}
}

func (m model) recap() tea.Cmd {
	w := m.sim.CurrentView()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a, err := m.press.Recap(ctx, w)
		return pressMsg{a, err}
	}
}

func Run(sim Simulation, b balance.Balance, press Press, autosave bool) error {
	p := tea.NewProgram(NewModel(sim, b, press, autosave), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
