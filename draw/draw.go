package draw

import "fmt"

// Point is a position, either in pixels or in data space.
type Point struct {
	X, Y float64
}

func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// Size is the extent of a rectangle.
type Size struct {
	W, H float64
}

// Rect is a rectangle in pixels.
type Rect struct {
	Origin Point
	Size   Size
}

// R is a shortcut for creating a rectangle.
func R(x, y, w, h float64) Rect {
	return Rect{Origin: Point{X: x, Y: y}, Size: Size{W: w, H: h}}
}

// Command is a recorded drawing operation.
type Command struct {
	Op     string                 // line, area, bar, candle, label, shape, rect, circle, icon
	Series []float64              // line, area, bar: one value per bar, NaN for gaps
	Aux    [][]float64            // candle: open, high, low, close
	Points []Point                // label, shape, icon, circle: anchor; rect: two corners
	Text   string                 // label text or icon glyph
	Style  map[string]interface{} // normalized style properties
}

// Surface is something to draw on.
type Surface interface {
	Add(Command)
	Clear()
	Resize(Size)
	Size() Size
}

// Target receives rendered content, positioned at a point.
type Target interface {
	Composite(r *Recorder, at Point)
}

// Recorder is an offscreen surface recording commands.
type Recorder struct {
	size Size
	cmds []Command
}

var _ Surface = (*Recorder)(nil)

// NewRecorder creates a recorder of a given size.
func NewRecorder(size Size) *Recorder {
	return &Recorder{size: size}
}

// Add is part of interface Surface.
func (r *Recorder) Add(cmd Command) {
	r.cmds = append(r.cmds, cmd)
}

// Clear is part of interface Surface.
func (r *Recorder) Clear() {
	r.cmds = r.cmds[:0]
}

// Resize is part of interface Surface. Resizing discards the content.
func (r *Recorder) Resize(size Size) {
	r.size = size
	r.Clear()
}

// Size is part of interface Surface.
func (r *Recorder) Size() Size {
	return r.size
}

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []Command {
	return append([]Command(nil), r.cmds...)
}

// Len is the number of recorded commands.
func (r *Recorder) Len() int {
	return len(r.cmds)
}

// Ops lists the operation names of the recorded commands, in order.
func (r *Recorder) Ops() []string {
	ops := make([]string, len(r.cmds))
	for i, c := range r.cmds {
		ops[i] = c.Op
	}
	return ops
}
