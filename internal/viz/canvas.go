package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a grid of braille cells. Pixel coordinates address the dots, so
// the drawable area is (Width*2) x (Height*4) with y growing downwards.
// Every cell remembers the Pen it was last drawn with.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Ink           [][]Layer
	Pen           Layer
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		Ink:    make([][]Layer, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Ink[i] = make([]Layer, w)
	}
	c.Clear()
	return c
}

// PixelSize is the canvas size in dots.
func (c *Canvas) PixelSize() (int, int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) cell(x, y int) (row, col int, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, false
	}
	col, row = x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, false
	}
	return row, col, true
}

func (c *Canvas) Set(x, y int) {
	row, col, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
	c.Ink[row][col] = c.Pen
}

func (c *Canvas) Unset(x, y int) {
	row, col, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] &^= rune(pixelMap[y%4][x%2])
	if c.Grid[row][col] < blank {
		c.Grid[row][col] = blank
	}
}

// IsSet reports whether the dot at (x, y) is drawn.
func (c *Canvas) IsSet(x, y int) bool {
	row, col, ok := c.cell(x, y)
	if !ok {
		return false
	}
	return c.Grid[row][col]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
			c.Ink[i][j] = LayerNone
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawCircle draws the outline of a circle with the midpoint algorithm.
func (c *Canvas) DrawCircle(cx, cy, r int) {
	if r <= 0 {
		c.Set(cx, cy)
		return
	}
	x, y, d := r, 0, 1-r
	for x >= y {
		for _, p := range [8][2]int{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			c.Set(cx+p[0], cy+p[1])
		}
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

// FillCircle sets every dot within r of (cx, cy).
func (c *Canvas) FillCircle(cx, cy, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.Set(cx+dx, cy+dy)
			}
		}
	}
}

// DrawCross draws a plus marker with arms of length r.
func (c *Canvas) DrawCross(cx, cy, r int) {
	c.DrawLine(cx-r, cy, cx+r, cy)
	c.DrawLine(cx, cy-r, cx, cy+r)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Render colors every cell with the style of its ink. Runs of equal ink
// share one styled segment.
func (c *Canvas) Render(palette map[Layer]lipgloss.Style) string {
	var b strings.Builder
	for i, row := range c.Grid {
		start := 0
		for j := 1; j <= len(row); j++ {
			if j < len(row) && c.Ink[i][j] == c.Ink[i][start] {
				continue
			}
			seg := string(row[start:j])
			if style, ok := palette[c.Ink[i][start]]; ok {
				seg = style.Render(seg)
			}
			b.WriteString(seg)
			start = j
		}
		b.WriteString("\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Viewport maps a world rectangle onto a canvas with equal scale on both
// axes. Braille dots are close to square on a terminal. World y points up.
type Viewport struct {
	MinX, MinY, MaxX, MaxY float64

	scale      float64
	offX, offY float64
	pixelH     int
}

// Fit returns a viewport showing the given world bounds on c, padded by
// margin on every side.
func Fit(c *Canvas, minX, minY, maxX, maxY, margin float64) *Viewport {
	v := &Viewport{MinX: minX - margin, MinY: minY - margin, MaxX: maxX + margin, MaxY: maxY + margin}
	pw, ph := c.PixelSize()
	v.pixelH = ph

	w, h := v.MaxX-v.MinX, v.MaxY-v.MinY
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	v.scale = math.Min(float64(pw-1)/w, float64(ph-1)/h)
	v.offX = (float64(pw-1) - w*v.scale) / 2
	v.offY = (float64(ph-1) - h*v.scale) / 2
	return v
}

// Project converts world coordinates to canvas dots.
func (v *Viewport) Project(x, y float64) (int, int) {
	px := v.offX + (x-v.MinX)*v.scale
	py := float64(v.pixelH-1) - v.offY - (y-v.MinY)*v.scale
	return int(math.Round(px)), int(math.Round(py))
}

// Length converts a world distance to dots.
func (v *Viewport) Length(d float64) int {
	return int(math.Round(d * v.scale))
}
