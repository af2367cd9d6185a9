package viz

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/san-kum/fabrics/internal/config"
	"github.com/san-kum/fabrics/internal/experiment"
)

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// pickerParams are the tunables offered before a preset starts.
var pickerParams = []string{
	"damper.beta_close",
	"damper.beta_distant",
	"attractor.k",
	"base_inertia",
	"collision.geometry_lambda",
	"dt",
	"duration",
}

type preset struct {
	robot, name string
}

func (p preset) String() string { return p.robot + "/" + p.name }

// picker lets the user choose a preset, edit a few constants and then
// hands over to the live view.
type picker struct {
	state, cursor int
	presets       []preset
	cfg           *config.Config
	paramCursor   int
	editing       bool
	editBuf       string
	err           error
	liveModel     Model
	logger        *zap.Logger
	opts          []ModelOption
}

func newPicker(logger *zap.Logger, opts ...ModelOption) picker {
	var presets []preset
	for _, robot := range config.ListRobots() {
		for _, name := range config.ListPresets(robot) {
			presets = append(presets, preset{robot: robot, name: name})
		}
	}
	return picker{state: stateMenu, presets: presets, logger: logger, opts: opts}
}

func (m picker) Init() tea.Cmd { return nil }

func (m picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.state = stateConfig
			return m, nil
		}
		next, cmd := m.liveModel.Update(msg)
		m.liveModel = next.(Model)
		return m, cmd
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		if m.state == stateMenu {
			return m.menuKey(k)
		}
		return m.configKey(k)
	}
	return m, nil
}

func (m picker) menuKey(msg tea.KeyMsg) (picker, tea.Cmd) {
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
		p := m.presets[m.cursor]
		m.cfg = config.GetPreset(p.robot, p.name)
		m.state, m.paramCursor, m.err = stateConfig, 0, nil
	}
	return m, nil
}

func (m picker) configKey(msg tea.KeyMsg) (picker, tea.Cmd) {
	name := pickerParams[m.paramCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				m.err = m.cfg.SetParam(name, v)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-e") {
				m.editBuf += s
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(pickerParams)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		v, _ := m.cfg.GetParam(name)
		m.editing, m.editBuf = true, strconv.FormatFloat(v, 'g', -1, 64)
	case "left", "h":
		v, _ := m.cfg.GetParam(name)
		m.err = m.cfg.SetParam(name, v*0.9)
	case "right", "l":
		v, _ := m.cfg.GetParam(name)
		m.err = m.cfg.SetParam(name, v*1.1)
	case "s":
		return m.start()
	}
	return m, nil
}

func (m picker) start() (picker, tea.Cmd) {
	run, err := experiment.New(m.cfg.Clone(), experiment.WithLogger(m.logger)).Build(0)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.liveModel = NewModel(run, m.opts...)
	m.state, m.err = stateSim, nil
	return m, m.liveModel.Init()
}

var (
	menuHint   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
	menuDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuActive = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuValue  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff")).Bold(true)
)

func (m picker) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	}
	return m.liveModel.View()
}

func hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(menuHint.Render(pairs[i]) + menuDim.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (m picker) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + GradientText("FABRICS", CurrentTheme.Secondary, CurrentTheme.Primary) + "\n")
	b.WriteString("    " + menuDim.Render("reactive motion generation") + "\n    " + Separator(26) + "\n\n")
	for i, p := range m.presets {
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s\n", menuHint.Render("▸"), menuActive.Render(p.String())))
		} else {
			b.WriteString("      " + menuDim.Render(p.String()) + "\n")
		}
	}
	b.WriteString("\n    " + hints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m picker) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + headerStyle().Render(strings.ToUpper(m.cfg.Name)) + "\n")
	for i, name := range pickerParams {
		v, _ := m.cfg.GetParam(name)
		valStr := fmt.Sprintf("%10.4g", v)
		if m.editing && i == m.paramCursor {
			valStr = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		if i == m.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", menuHint.Render("▸"), menuActive.Render(fmt.Sprintf("%-26s", name)), menuValue.Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("      %s %s\n", menuDim.Render(fmt.Sprintf("%-26s", name)), menuDim.Render(valStr)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + hints("j/k", "select", "h/l", "adjust", "enter", "edit", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// RunInteractive opens the preset picker.
func RunInteractive(logger *zap.Logger, opts ...ModelOption) error {
	_, err := tea.NewProgram(newPicker(logger, opts...), tea.WithAltScreen()).Run()
	return err
}
