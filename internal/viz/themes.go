package viz

import "github.com/charmbracelet/lipgloss"

// Layer tags what a canvas cell shows so a theme can color it.
type Layer int

const (
	LayerNone Layer = iota
	LayerTrail
	LayerGoal
	LayerObstacle
	LayerRobot
)

// Theme defines color scheme for the TUI
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	Robot    lipgloss.Color
	Obstacle lipgloss.Color
	Goal     lipgloss.Color
	Trail    lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:      "cyberpunk",
		Primary:   lipgloss.Color("#ff00ff"),
		Secondary: lipgloss.Color("#00ffff"),
		Muted:     lipgloss.Color("#666666"),
		Success:   lipgloss.Color("#00ff00"),
		Warning:   lipgloss.Color("#ff8800"),
		Error:     lipgloss.Color("#ff0000"),
		Robot:     lipgloss.Color("#00ffff"),
		Obstacle:  lipgloss.Color("#ff0066"),
		Goal:      lipgloss.Color("#ffff00"),
		Trail:     lipgloss.Color("#664488"),
	}

	ThemeRetroGreen = Theme{
		Name:      "retro",
		Primary:   lipgloss.Color("#00ff00"), // green phosphor
		Secondary: lipgloss.Color("#00cc00"),
		Muted:     lipgloss.Color("#005500"),
		Success:   lipgloss.Color("#88ff88"),
		Warning:   lipgloss.Color("#ffff00"),
		Error:     lipgloss.Color("#ff0000"),
		Robot:     lipgloss.Color("#88ff88"),
		Obstacle:  lipgloss.Color("#00aa00"),
		Goal:      lipgloss.Color("#ccffcc"),
		Trail:     lipgloss.Color("#006600"),
	}

	ThemeMinimal = Theme{
		Name:      "minimal",
		Primary:   lipgloss.Color("#ffffff"),
		Secondary: lipgloss.Color("#cccccc"),
		Muted:     lipgloss.Color("#888888"),
		Success:   lipgloss.Color("#00ff00"),
		Warning:   lipgloss.Color("#ffaa00"),
		Error:     lipgloss.Color("#ff0000"),
		Robot:     lipgloss.Color("#ffffff"),
		Obstacle:  lipgloss.Color("#888888"),
		Goal:      lipgloss.Color("#0088ff"),
		Trail:     lipgloss.Color("#444444"),
	}

	ThemeOcean = Theme{
		Name:      "ocean",
		Primary:   lipgloss.Color("#0077be"),
		Secondary: lipgloss.Color("#00a8cc"),
		Muted:     lipgloss.Color("#4488aa"),
		Success:   lipgloss.Color("#00ff88"),
		Warning:   lipgloss.Color("#ffcc00"),
		Error:     lipgloss.Color("#ff4444"),
		Robot:     lipgloss.Color("#e0f0ff"),
		Obstacle:  lipgloss.Color("#ff6b6b"),
		Goal:      lipgloss.Color("#ffd700"),
		Trail:     lipgloss.Color("#00a8cc"),
	}

	CurrentTheme = ThemeCyberpunk

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeOcean,
	}
)

// Palette maps canvas layers to styles.
func (t Theme) Palette() map[Layer]lipgloss.Style {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	return map[Layer]lipgloss.Style{
		LayerTrail:    fg(t.Trail),
		LayerGoal:     fg(t.Goal).Bold(true),
		LayerObstacle: fg(t.Obstacle),
		LayerRobot:    fg(t.Robot).Bold(true),
	}
}

// GetTheme returns a theme by name
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

// NextTheme switches to the theme after the current one.
func NextTheme() {
	names := ThemeNames()
	for i, name := range names {
		if name == CurrentTheme.Name {
			SetTheme(names[(i+1)%len(names)])
			return
		}
	}
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
