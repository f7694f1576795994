package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/san-kum/circuitsim/internal/config"
	"github.com/san-kum/circuitsim/internal/experiment"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type state int

const (
	stateMenu state = iota
	stateConfig
	stateSim
)

type model struct {
	state    state
	cursor   int
	registry *experiment.Registry
	presets  []string
	logger   *log.Logger

	cfg         *config.Config
	paramNames  []string
	paramCursor int
	editing     bool
	editBuf     string

	run *liveRun

	width  int
	height int
}

func newModel(logger *log.Logger) model {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	r := experiment.NewRegistry()
	return model{
		state:      stateMenu,
		registry:   r,
		presets:    r.ListPresets(),
		logger:     logger,
		paramNames: []string{"h", "tmax"},
		width:      80,
		height:     24,
	}
}

// newRunModel starts directly in the simulation view for cfg.
func newRunModel(cfg *config.Config, logger *log.Logger) (model, tea.Cmd, error) {
	m := newModel(logger)
	m.cfg = cfg
	cmd, err := m.start()
	return m, cmd, err
}

func (m model) Init() tea.Cmd {
	if m.run != nil {
		return m.run.wait()
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case sampleMsg:
		if m.run == nil || msg.run != m.run {
			return m, nil
		}
		m.run.observe(msg)
		return m, m.run.wait()
	case doneMsg:
		if m.run == nil || msg.run != m.run {
			return m, nil
		}
		m.run.finish(msg)
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		return m.simKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		cfg, err := m.registry.Preset(m.presets[m.cursor])
		if err != nil {
			m.logger.Error("preset", "err", err)
			return m, nil
		}
		m.cfg = cfg
		m.state = stateConfig
		m.paramCursor = 0
	}
	return m, nil
}

func (m *model) param(name string) *float64 {
	switch name {
	case "h":
		return &m.cfg.H
	case "tmax":
		return &m.cfg.TMax
	}
	return nil
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	p := m.param(m.paramNames[m.paramCursor])
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%g", &val); err == nil && val > 0 {
				*p = val
			}
			m.editing = false
			m.editBuf = ""
		case "esc":
			m.editing = false
			m.editBuf = ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == '-' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(m.paramNames)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing = true
		m.editBuf = fmt.Sprintf("%g", *p)
	case "left", "h":
		*p /= 2
	case "right", "l":
		*p *= 2
	case "s":
		cmd, err := m.start()
		if err != nil {
			m.logger.Error("start", "err", err)
			return m, nil
		}
		return m, tea.Batch(tea.ClearScreen, cmd)
	}
	return m, nil
}

func (m model) simKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.run.stop()
		return m, tea.Quit
	case "q", "esc":
		m.run.stop()
		m.run = nil
		m.state = stateMenu
		return m, tea.ClearScreen
	case "tab", "right", "l":
		m.run.selected = (m.run.selected + 1) % len(m.run.names)
	case "shift+tab", "left", "h":
		m.run.selected = (m.run.selected + len(m.run.names) - 1) % len(m.run.names)
	case "r":
		m.run.stop()
		cmd, err := m.start()
		if err != nil {
			m.logger.Error("restart", "err", err)
			return m, nil
		}
		return m, tea.Batch(tea.ClearScreen, cmd)
	}
	return m, nil
}

// start launches the driver for m.cfg in the background.
func (m *model) start() (tea.Cmd, error) {
	exp, err := experiment.New(m.cfg, m.logger)
	if err != nil {
		return nil, err
	}
	run, err := startRun(context.Background(), exp)
	if err != nil {
		return nil, err
	}
	m.run = run
	m.state = stateSim
	return run.wait(), nil
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.viewSim()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("           " + cyan.Render("c i r c u i t s i m") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, name := range m.presets {
		desc := ""
		if e, err := m.registry.Describe(name); err == nil {
			desc = fmt.Sprintf("%d elements, %d unknowns", e.Elements, e.Unknowns)
		}
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-12s", name)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-12s", name)) + dimmer.Render(desc) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter configure   q quit") + "\n")

	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("      " + cyan.Render(m.cfg.Name) + "  " + dim.Render(strings.Join(m.cfg.Probes, " ")) + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 30)) + "\n\n")

	for i, name := range m.paramNames {
		val := fmt.Sprintf("%10g", *m.param(name))
		if m.editing && i == m.paramCursor {
			val = fmt.Sprintf("%10s", m.editBuf+"▋")
		}
		if i == m.paramCursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-8s", name)) + magenta.Render(val) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-8s", name)) + dim.Render(val) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select  ←→ halve/double  enter edit  s start  esc back") + "\n")

	return b.String()
}

// RunInteractive opens the preset browser.
func RunInteractive(logger *log.Logger) error {
	p := tea.NewProgram(newModel(logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RunLive runs cfg and follows it in the terminal until the user quits.
func RunLive(cfg *config.Config, logger *log.Logger) error {
	m, _, err := newRunModel(cfg, logger)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
