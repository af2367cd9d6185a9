// Package export renders runs to SVG.
package export

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/dynamo"
	"github.com/san-kum/fabrics/internal/metrics"
	"github.com/san-kum/fabrics/internal/scene"
	"github.com/san-kum/fabrics/internal/viz"
)

var ErrNoTrace = errors.New("export: nothing to draw")

// CanvasToSVG converts a Braille canvas to SVG, one circle per dot colored
// by the layer of its cell.
func CanvasToSVG(canvas *viz.Canvas, theme viz.Theme, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	pixelMap := [4][2]int{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}
	dotRadius := scale * 0.4

	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			r := canvas.Grid[row][col]
			if r <= 0x2800 {
				continue
			}
			pattern := int(r - 0x2800)
			fill := layerColor(theme, canvas.Ink[row][col])

			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] == 0 {
						continue
					}
					cx := baseX + float64(dx)*scale + scale/2
					cy := baseY + float64(dy)*scale + scale/2
					fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\" fill=\"%s\"/>\n", cx, cy, dotRadius, fill)
				}
			}
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func layerColor(theme viz.Theme, l viz.Layer) string {
	switch l {
	case viz.LayerTrail:
		return string(theme.Trail)
	case viz.LayerGoal:
		return string(theme.Goal)
	case viz.LayerObstacle:
		return string(theme.Obstacle)
	case viz.LayerRobot:
		return string(theme.Robot)
	}
	return string(theme.Primary)
}

// Traces locates links in every state. Links a state does not resolve are
// skipped for that state.
func Traces(loc metrics.Locator, states []dynamo.State, links ...string) (map[string][]r3.Vector, error) {
	out := make(map[string][]r3.Vector, len(links))
	for _, x := range states {
		ps, err := loc.Locate(x)
		if err != nil {
			return nil, errors.Wrap(err, "locate")
		}
		for _, link := range links {
			if p, ok := ps[link]; ok {
				out[link] = append(out[link], p)
			}
		}
	}
	return out, nil
}

// Drawing is a planar top view of a run.
type Drawing struct {
	Scene  *scene.Scene
	Time   float64
	Traces map[string][]r3.Vector
	Goals  []r3.Vector
	Theme  viz.Theme
	Width  int
	Height int
}

type bounds struct{ minX, minY, maxX, maxY float64 }

func (b *bounds) add(p r3.Vector, r float64) {
	b.minX = math.Min(b.minX, p.X-r)
	b.maxX = math.Max(b.maxX, p.X+r)
	b.minY = math.Min(b.minY, p.Y-r)
	b.maxY = math.Max(b.maxY, p.Y+r)
}

func (d *Drawing) bounds() (bounds, bool) {
	b := bounds{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	n := 0
	for _, tr := range d.Traces {
		for _, p := range tr {
			b.add(p, 0)
			n++
		}
	}
	if n == 0 {
		return b, false
	}
	for _, g := range d.Goals {
		b.add(g, 0)
	}
	if d.Scene != nil {
		for _, o := range d.Scene.Obstacles {
			b.add(o.At(d.Time), o.Radius)
		}
	}

	// Pad and square the box so circles stay round.
	span := math.Max(b.maxX-b.minX, b.maxY-b.minY)
	if span == 0 {
		span = 1
	}
	cx, cy := (b.minX+b.maxX)/2, (b.minY+b.maxY)/2
	half := span * 0.6
	return bounds{cx - half, cy - half, cx + half, cy + half}, true
}

// WriteSVG draws obstacles, goals and link traces. Traces end in a filled
// marker at the final position.
func (d *Drawing) WriteSVG(w io.Writer) error {
	b, ok := d.bounds()
	if !ok {
		return ErrNoTrace
	}
	width, height := d.Width, d.Height
	if width <= 0 {
		width = 600
	}
	if height <= 0 {
		height = width
	}
	scale := math.Min(float64(width), float64(height)) / (b.maxX - b.minX)
	project := func(p r3.Vector) (float64, float64) {
		return (p.X - b.minX) * scale, float64(height) - (p.Y-b.minY)*scale
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	if d.Scene != nil {
		for _, o := range d.Scene.Obstacles {
			x, y := project(o.At(d.Time))
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\" fill=\"%s\" fill-opacity=\"0.6\"/>\n",
				x, y, o.Radius*scale, d.Theme.Obstacle)
		}
	}

	links := make([]string, 0, len(d.Traces))
	for link := range d.Traces {
		links = append(links, link)
	}
	sort.Strings(links)
	for _, link := range links {
		tr := d.Traces[link]
		if len(tr) == 0 {
			continue
		}
		fmt.Fprintf(&sb, `<path id="%s" fill="none" stroke="%s" stroke-width="1.5" d="M`, link, d.Theme.Trail)
		for i, p := range tr {
			x, y := project(p)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
		x, y := project(tr[len(tr)-1])
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"4\" fill=\"%s\"/>\n", x, y, d.Theme.Robot)
	}

	for _, g := range d.Goals {
		x, y := project(g)
		fmt.Fprintf(&sb, "<path stroke=\"%s\" stroke-width=\"2\" d=\"M%.1f,%.1f L%.1f,%.1f M%.1f,%.1f L%.1f,%.1f\"/>\n",
			d.Theme.Goal, x-6, y-6, x+6, y+6, x-6, y+6, x+6, y-6)
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
