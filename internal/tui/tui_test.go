package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/circuitsim/internal/config"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain feeds command results back into the model until the run settles.
func drain(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		if i > 10000 {
			t.Fatal("run did not settle")
		}
		msg := cmd()
		if msg == nil {
			break
		}
		next, c := m.Update(msg)
		m = next.(model)
		cmd = c
	}
	return m
}

func TestLiveRunCompletes(t *testing.T) {
	m, cmd, err := newRunModel(config.GetPreset("ohm"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.state != stateSim {
		t.Fatalf("expected sim state, got %d", m.state)
	}

	m = drain(t, m, cmd)
	if !m.run.done || m.run.err != nil {
		t.Fatalf("expected clean finish, got done=%v err=%v", m.run.done, m.run.err)
	}
	if m.run.step != 10 {
		t.Errorf("expected 10 steps, got %d", m.run.step)
	}
	if v := m.run.values[0]; v < 0.999 || v > 1.001 {
		t.Errorf("expected v(1) = 1, got %f", v)
	}

	view := m.View()
	for _, want := range []string{"ohm", "done", "v(1)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLiveRunDecimates(t *testing.T) {
	cfg := config.GetPreset("rc")
	m, cmd, err := newRunModel(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	samples := 0
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		if _, ok := msg.(sampleMsg); ok {
			samples++
		}
		next, c := m.Update(msg)
		m = next.(model)
		cmd = c
	}
	if samples > maxFrames+1 {
		t.Errorf("expected at most %d samples, got %d", maxFrames+1, samples)
	}
	if m.run.step != 1000 {
		t.Errorf("expected the final step to arrive, got %d", m.run.step)
	}
	if len(m.run.history[0]) > historyLen {
		t.Errorf("history exceeded %d entries", historyLen)
	}
}

func TestMenuNavigation(t *testing.T) {
	m := newModel(nil)
	if !strings.Contains(m.View(), "rc") {
		t.Error("menu should list presets")
	}

	next, _ := m.Update(key("down"))
	m = next.(model)
	if m.cursor != 1 {
		t.Errorf("expected cursor 1, got %d", m.cursor)
	}

	next, _ = m.Update(key("enter"))
	m = next.(model)
	if m.state != stateConfig || m.cfg == nil || m.cfg.Name != m.presets[1] {
		t.Fatalf("expected config view for %s", m.presets[1])
	}

	h := m.cfg.H
	next, _ = m.Update(key("right"))
	m = next.(model)
	if m.cfg.H != 2*h {
		t.Errorf("expected h doubled to %g, got %g", 2*h, m.cfg.H)
	}

	next, _ = m.Update(key("esc"))
	m = next.(model)
	if m.state != stateMenu {
		t.Errorf("expected menu state, got %d", m.state)
	}
}

func TestConfigEdit(t *testing.T) {
	m := newModel(nil)
	next, _ := m.Update(key("enter"))
	m = next.(model)
	next, _ = m.Update(key("enter"))
	m = next.(model)
	if !m.editing {
		t.Fatal("expected edit mode")
	}

	m.editBuf = ""
	for _, k := range []string{"0", ".", "5", "x", "enter"} {
		next, _ = m.Update(key(k))
		m = next.(model)
	}
	if m.editing || m.cfg.H != 0.5 {
		t.Errorf("expected h = 0.5 after edit, got %g", m.cfg.H)
	}
}

func TestSimKeysStopRun(t *testing.T) {
	m := newModel(nil)
	next, _ := m.Update(key("enter"))
	m = next.(model)
	next, cmd := m.Update(key("s"))
	m = next.(model)
	if m.state != stateSim || cmd == nil {
		t.Fatal("expected simulation to start")
	}

	names := len(m.run.names)
	next, _ = m.Update(key("tab"))
	m = next.(model)
	if names > 1 && m.run.selected != 1 {
		t.Errorf("expected probe 1 selected, got %d", m.run.selected)
	}

	next, _ = m.Update(key("esc"))
	m = next.(model)
	if m.state != stateMenu || m.run != nil {
		t.Error("expected menu after stopping the run")
	}
}
