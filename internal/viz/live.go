package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/geo/r3"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fabrics/internal/dynamo"
	"github.com/san-kum/fabrics/internal/experiment"
	"github.com/san-kum/fabrics/internal/kinematics"
	"github.com/san-kum/fabrics/internal/planner"
)

const (
	width           = 72
	height          = 24
	historyCapacity = 600
	trailCapacity   = 400
)

// Snapshot stores state at a specific time for replay.
type Snapshot struct {
	State    dynamo.State
	Time     float64
	Distance float64
}

type TickMsg time.Time

// Model steps one experiment run in real time and draws its links,
// obstacles, goal targets and end-effector trail.
type Model struct {
	run           *experiment.Run
	state         dynamo.State
	u             dynamo.Control
	t, dt         float64
	width, height int
	canvas        *Canvas
	view          *Viewport
	trail         []r3.Vector
	running       bool
	finished      bool
	speed         int
	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
	distHistory   []float64
	history       []Snapshot
	playHead      int
	recording     bool
	frames        []*image.Paletted
	gifPath       string
	showHelp      bool
	err           error
}

type ModelOption func(*Model)

// WithSpeed sets the simulation steps taken per frame.
func WithSpeed(n int) ModelOption {
	return func(m *Model) { m.speed = max(n, 1) }
}

// WithGIFPath sets where recordings are written.
func WithGIFPath(path string) ModelOption {
	return func(m *Model) { m.gifPath = path }
}

func NewModel(run *experiment.Run, opts ...ModelOption) Model {
	params := make(map[string]float64)
	if c, ok := run.Controller.(dynamo.Configurable); ok {
		for k, v := range c.GetParams() {
			params[k] = v
		}
	}
	keys := make([]string, 0, len(params))
	initialParams := make(map[string]float64)
	for k, v := range params {
		keys = append(keys, k)
		if v == 0 {
			v = 1e-6
		}
		initialParams[k] = v
	}
	sort.Strings(keys)

	m := Model{
		run:           run,
		state:         run.Initial.Clone(),
		u:             make(dynamo.Control, run.Robot.Model.ControlDim()),
		dt:            run.Config.Dt,
		width:         width,
		height:        height,
		canvas:        NewCanvas(width, height),
		trail:         make([]r3.Vector, 0, trailCapacity),
		running:       true,
		speed:         1,
		params:        params,
		initialParams: initialParams,
		paramKeys:     keys,
		distHistory:   make([]float64, 0, historyCapacity),
		history:       make([]Snapshot, 0, historyCapacity),
		playHead:      -1,
		gifPath:       "fabrics.gif",
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.view = m.fit()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "+", "=":
			m.speed = min(m.speed*2, 64)
		case "-", "_":
			m.speed = max(m.speed/2, 1)
		case "g":
			m.toggleRecording()
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			NextTheme()
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				for i := 0; i < m.speed && !m.finished; i++ {
					m.step()
				}
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	m.setParam(key, m.params[key]*factor)
}

func (m *Model) setParam(key string, v float64) {
	c, ok := m.run.Controller.(dynamo.Configurable)
	if !ok {
		return
	}
	if err := c.SetParam(key, v); err != nil {
		m.err = err
		return
	}
	m.params[key] = v
}

// step advances the closed loop by one tick.
func (m *Model) step() {
	sys := m.run.Robot.Model
	m.u = m.run.Controller.Compute(m.state, m.t)
	m.state = m.run.Integrator.Step(sys, m.state, m.u, m.t, m.dt)
	m.t += m.dt
	if !m.state.IsValid() {
		m.err = dynamo.ErrInvalidState
		m.finished, m.running = true, false
	}
	if m.t >= m.run.Config.Duration-m.dt/2 {
		m.finished = true
	}

	dist := m.goalDistance(m.state, m.t)
	m.distHistory = appendCapped(m.distHistory, dist, historyCapacity)
	m.history = append(m.history, Snapshot{State: m.state.Clone(), Time: m.t, Distance: dist})
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}

	if links, err := m.run.Locator.Locate(m.state); err == nil {
		if p, ok := links[kinematics.EndEffector]; ok {
			m.trail = append(m.trail, p)
			if len(m.trail) > trailCapacity {
				m.trail = m.trail[1:]
			}
		}
	}
}

func appendCapped(xs []float64, v float64, n int) []float64 {
	xs = append(xs, v)
	if len(xs) > n {
		xs = xs[1:]
	}
	return xs
}

// scrub changes the playback position in history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// reset restores the initial state and parameters.
func (m *Model) reset() {
	m.t = 0
	m.trail = m.trail[:0]
	m.state = m.run.Initial.Clone()
	m.distHistory = m.distHistory[:0]
	m.history = m.history[:0]
	m.playHead = -1
	m.finished = false
	m.err = nil
	m.u = make(dynamo.Control, m.run.Robot.Model.ControlDim())
	for k, v := range m.initialParams {
		m.setParam(k, v)
	}
}

func (m *Model) targets(t float64) []r3.Vector { return Targets(m.run.Scene.Goal, t) }

// Targets returns the absolute goal positions of goal at time t, primary
// first. Relative and joint-space sub-goals are skipped.
func Targets(goal planner.Goal, t float64) []r3.Vector {
	out := make([]r3.Vector, 0, len(goal.SubGoals))
	order := append([]int{goal.PrimaryIndex()}, seq(len(goal.SubGoals))...)
	seen := make(map[int]bool)
	for _, i := range order {
		if seen[i] {
			continue
		}
		seen[i] = true
		sg := goal.SubGoals[i]
		if sg.ParentLink != "" || len(sg.Indices) > 0 {
			continue
		}
		var pos []float64
		switch sg.Type {
		case planner.Static:
			pos = sg.DesiredPosition
		case planner.DynamicGoal:
			if sg.Reference != nil {
				pos, _, _ = sg.Reference(t)
			}
		case planner.SplineGoal:
			if sg.Trajectory != nil {
				pos, _, _ = sg.Trajectory.At(t)
			}
		}
		if len(pos) >= 2 {
			out = append(out, r3.Vector{X: pos[0], Y: pos[1]})
		}
	}
	return out
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// goalDistance is the planar distance from the primary goal link to its
// target, or NaN when the target cannot be drawn.
func (m *Model) goalDistance(x dynamo.State, t float64) float64 {
	goal := m.run.Scene.Goal
	if len(goal.SubGoals) == 0 {
		return math.NaN()
	}
	ts := m.targets(t)
	link := goal.SubGoals[goal.PrimaryIndex()].ChildLink
	links, err := m.run.Locator.Locate(x)
	if err != nil || len(ts) == 0 {
		return math.NaN()
	}
	p, ok := links[link]
	if !ok {
		return math.NaN()
	}
	return math.Hypot(p.X-ts[0].X, p.Y-ts[0].Y)
}

// fit frames the initial robot, the obstacles and the goal targets.
func (m *Model) fit() *Viewport {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(p r3.Vector, r float64) {
		minX, minY = math.Min(minX, p.X-r), math.Min(minY, p.Y-r)
		maxX, maxY = math.Max(maxX, p.X+r), math.Max(maxY, p.Y+r)
	}
	if links, err := m.run.Locator.Locate(m.state); err == nil {
		for _, p := range links {
			grow(p, 0)
		}
	}
	for _, o := range m.run.Scene.Obstacles {
		grow(o.Center, o.Radius)
	}
	for _, p := range m.targets(0) {
		grow(p, 0)
	}
	if math.IsInf(minX, 1) {
		minX, minY, maxX, maxY = -1, -1, 1, 1
	}
	return Fit(m.canvas, minX, minY, maxX, maxY, 0.3)
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.Render(CurrentTheme.Palette()))

	t, dist := m.t, m.lastDistance()
	var s strings.Builder
	s.WriteString(headerStyle().Render(strings.ToUpper(m.title())) + "\n")

	status := StatusRunning.Render("RUNNING")
	switch {
	case m.playHead != -1:
		snap := m.history[m.playHead]
		t, dist = snap.Time, snap.Distance
		status = StatusPaused.Render(fmt.Sprintf("REPLAY (%.1fs)", snap.Time-m.t))
	case m.finished:
		status = StatusPaused.Render("FINISHED")
	case !m.running:
		status = StatusPaused.Render("PAUSED")
	}
	if m.recording {
		status += " " + StatusRecording.Render("● REC")
	}
	s.WriteString(status + "\n")

	if len(m.distHistory) > 1 && !math.IsNaN(m.distHistory[0]) {
		chart := asciigraph.Plot(m.distHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("goal distance"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs / %.0fs", t, m.run.Config.Duration))
	s.WriteString(labelStyle.Render("Progress") + ProgressBar(t/m.run.Config.Duration, 20) + "\n")
	if !math.IsNaN(dist) {
		row("Goal dist", fmt.Sprintf("%.4f", dist))
	}
	if len(m.run.Scene.Obstacles) > 0 {
		row("Clearance", fmt.Sprintf("%.3f", m.clearance()))
	}
	row("Speed", fmt.Sprintf("%dx", m.speed))
	if f, ok := m.run.Controller.(interface{ Failures() int }); ok {
		row("Failures", fmt.Sprintf("%d", f.Failures()))
	}
	if m.run.Planner != nil {
		d := m.run.Planner.Diagnostics()
		row("Energy scale", fmt.Sprintf("%.3f", d.EnergyScale))
		row("Damping", fmt.Sprintf("%.3f", d.Damping))
		row("Regularized", fmt.Sprintf("%d", m.run.Planner.Regularizations()))
	}
	if m.err != nil {
		s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(m.err.Error()) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.params) > 0 {
		for i, k := range m.paramKeys {
			val, initial := m.params[k], m.initialParams[k]
			barWidth, ratio := 10, val/(2.0*initial)
			ratio = math.Min(math.Max(ratio, 0), 1)
			filled := int(ratio * float64(barWidth))
			bar := "[" + strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled) + "]"
			line := fmt.Sprintf("%-14s %s %.2f", k, bar, val)
			if i == m.selected {
				s.WriteString(activeStyle().Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + labelStyle.UnsetWidth().Render(line) + "\n")
			}
		}
	} else {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}
	s.WriteString(helpStyle.Render(Separator(30) + "\nSP:Pause R:Reset Q:Quit\nT:Theme  G:Record ?:Help\n[ ]:Replay ↑↓:Tune +-:Speed"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

const helpOverlay = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Reset simulation         ║
║  Q        - Quit                     ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  + / -    - Faster / slower          ║
║  [        - Rewind (time travel)     ║
║  ]        - Forward (time travel)    ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

func (m *Model) title() string {
	if m.run.Config.Name != "" {
		return m.run.Config.Name
	}
	return m.run.Config.Robot
}

func (m *Model) lastDistance() float64 {
	if len(m.distHistory) == 0 {
		return m.goalDistance(m.state, m.t)
	}
	return m.distHistory[len(m.distHistory)-1]
}

func (m *Model) clearance() float64 {
	links, err := m.run.Locator.Locate(m.shown())
	if err != nil {
		return math.NaN()
	}
	return m.run.Scene.Clearance(m.shownTime(), links)
}

func (m *Model) shown() dynamo.State {
	if m.playHead != -1 && m.playHead < len(m.history) {
		return m.history[m.playHead].State
	}
	return m.state
}

func (m *Model) shownTime() float64 {
	if m.playHead != -1 && m.playHead < len(m.history) {
		return m.history[m.playHead].Time
	}
	return m.t
}

// draw renders the scene at the shown state into the canvas.
func (m *Model) draw() {
	c, v := m.canvas, m.view
	x, t := m.shown(), m.shownTime()
	c.Clear()

	c.Pen = LayerTrail
	for _, p := range m.trail {
		c.Set(v.Project(p.X, p.Y))
	}

	c.Pen = LayerObstacle
	for _, o := range m.run.Scene.Obstacles {
		center := o.At(t)
		cx, cy := v.Project(center.X, center.Y)
		c.DrawCircle(cx, cy, v.Length(o.Radius))
	}

	c.Pen = LayerGoal
	for _, p := range m.targets(t) {
		gx, gy := v.Project(p.X, p.Y)
		c.DrawCross(gx, gy, 2)
	}

	links, err := m.run.Locator.Locate(x)
	if err != nil {
		m.err = err
		return
	}
	c.Pen = LayerRobot
	var prevX, prevY int
	for i, name := range m.run.FK.Links() {
		p := links[name]
		px, py := v.Project(p.X, p.Y)
		if i > 0 {
			c.DrawLine(prevX, prevY, px, py)
		}
		prevX, prevY = px, py
	}
	for _, name := range m.run.Scene.CollisionLinks() {
		p, ok := links[name]
		if !ok {
			continue
		}
		px, py := v.Project(p.X, p.Y)
		c.DrawCircle(px, py, v.Length(m.run.Scene.BodyRadii[name]))
	}
	p := links[kinematics.EndEffector]
	ex, ey := v.Project(p.X, p.Y)
	c.FillCircle(ex, ey, 1)
}

func (m *Model) toggleRecording() {
	if !m.recording {
		m.recording = true
		m.frames = make([]*image.Paletted, 0)
		return
	}
	if err := m.saveGIF(); err != nil {
		m.err = err
	}
	m.recording = false
	m.frames = nil
}

// captureFrame rasterizes the braille canvas, one 4x4 block per dot.
func (m *Model) captureFrame() {
	const dot = 4
	pw, ph := m.canvas.PixelSize()
	img := image.NewPaletted(image.Rect(0, 0, pw*dot, ph*dot), color.Palette{color.Black, color.White})
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if !m.canvas.IsSet(x, y) {
				continue
			}
			for dy := 0; dy < dot; dy++ {
				for dx := 0; dx < dot; dx++ {
					img.SetColorIndex(x*dot+dx, y*dot+dy, 1)
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF() error {
	if len(m.frames) == 0 {
		return nil
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 2)
	}
	f, err := os.Create(m.gifPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, &anim)
}

// RunLive opens the live view of run in the alternate screen.
func RunLive(run *experiment.Run, opts ...ModelOption) error {
	_, err := tea.NewProgram(NewModel(run, opts...), tea.WithAltScreen()).Run()
	return err
}
