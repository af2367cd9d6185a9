package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/fabrics/internal/config"
	"github.com/san-kum/fabrics/internal/experiment"
)

func TestCanvasSetUnset(t *testing.T) {
	c := NewCanvas(2, 2)
	c.Set(3, 5)
	if !c.IsSet(3, 5) {
		t.Fatal("expected dot to be set")
	}
	if c.Grid[1][1] == blank {
		t.Error("expected cell (1, 1) to change")
	}
	c.Unset(3, 5)
	if c.IsSet(3, 5) || c.Grid[1][1] != blank {
		t.Error("expected dot to be cleared")
	}

	// out of range is ignored
	c.Set(-1, 0)
	c.Set(100, 100)
	if strings.Count(c.String(), string(rune(blank))) != 4 {
		t.Error("expected untouched canvas")
	}
}

func TestDrawLineEndpoints(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 19, 19)
	for _, p := range [][2]int{{0, 0}, {10, 10}, {19, 19}} {
		if !c.IsSet(p[0], p[1]) {
			t.Errorf("expected (%d, %d) on the diagonal", p[0], p[1])
		}
	}
}

func TestDrawCircle(t *testing.T) {
	c := NewCanvas(20, 10)
	c.DrawCircle(20, 20, 8)
	for _, p := range [][2]int{{28, 20}, {12, 20}, {20, 28}, {20, 12}} {
		if !c.IsSet(p[0], p[1]) {
			t.Errorf("expected (%d, %d) on the circle", p[0], p[1])
		}
	}
	if c.IsSet(20, 20) {
		t.Error("center should stay empty")
	}
}

func TestViewportProject(t *testing.T) {
	c := NewCanvas(40, 20) // 80 x 80 dots
	v := Fit(c, 0, 0, 1, 1, 0)

	x0, y0 := v.Project(0, 0)
	x1, y1 := v.Project(1, 1)
	if x0 != 0 || y0 != 79 || x1 != 79 || y1 != 0 {
		t.Errorf("unexpected corners (%d, %d) (%d, %d)", x0, y0, x1, y1)
	}
	if got := v.Length(0.5); got != 40 {
		t.Errorf("expected 40 dots, got %d", got)
	}
}

func TestCanvasRenderKeepsText(t *testing.T) {
	c := NewCanvas(4, 1)
	c.Pen = LayerRobot
	c.Set(0, 0)
	out := c.Render(CurrentTheme.Palette())
	if !strings.Contains(out, string(rune(blank+0x1))) {
		t.Error("expected the drawn cell in the output")
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	cfg := config.GetPreset(config.RobotPointMass, "obstacle")
	run, err := experiment.New(cfg).Build(0)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return NewModel(run, WithSpeed(5))
}

func TestModelSteps(t *testing.T) {
	m := newTestModel(t)
	start := m.lastDistance()

	var next tea.Model = m
	for i := 0; i < 20; i++ {
		next, _ = next.Update(TickMsg{})
	}
	m = next.(Model)

	if len(m.history) != 100 {
		t.Fatalf("expected 100 snapshots, got %d", len(m.history))
	}
	if m.lastDistance() >= start {
		t.Errorf("expected progress towards the goal: %f -> %f", start, m.lastDistance())
	}
	if len(m.trail) == 0 {
		t.Error("expected an end-effector trail")
	}
	if !strings.Contains(m.View(), "POINT_MASS/OBSTACLE") {
		t.Error("expected the preset name in the view")
	}
}

func TestModelKeys(t *testing.T) {
	m := newTestModel(t)
	press := func(key string) {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		m = next.(Model)
	}

	press(" ")
	if m.running {
		t.Fatal("expected pause")
	}
	next, _ := m.Update(TickMsg{})
	m = next.(Model)
	if m.t != 0 {
		t.Error("paused model should not step")
	}

	press(" ")
	next, _ = m.Update(TickMsg{})
	m = next.(Model)
	press("[")
	if m.playHead != len(m.history)-2 {
		t.Errorf("expected replay one step back, got %d", m.playHead)
	}

	press("r")
	if m.t != 0 || len(m.history) != 0 || m.playHead != -1 {
		t.Error("expected reset")
	}

	press("k")
	if got := m.params["weight_goal_0"]; got <= m.initialParams["weight_goal_0"] {
		t.Errorf("expected weight to grow, got %f", got)
	}
}

func TestPickerStartsPreset(t *testing.T) {
	p := newPicker(nil)
	if len(p.presets) == 0 {
		t.Fatal("expected presets")
	}

	next, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = next.(picker)
	if p.state != stateConfig || p.cfg == nil {
		t.Fatal("expected config screen")
	}

	next, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	p = next.(picker)
	if p.err != nil {
		t.Fatalf("start failed: %v", p.err)
	}
	if p.state != stateSim {
		t.Error("expected live view")
	}
}
