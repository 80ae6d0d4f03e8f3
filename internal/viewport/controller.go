package viewport

import (
	"errors"
	"fmt"
	"math"
)

// Default tuning for zoom behaviour
const (
	DefaultZoomStep = 0.1
	DefaultMinScale = 0.1
	DefaultMaxScale = 10.0
)

// ErrInvalidOptions is returned by New for options that would allow a
// non-positive scale or an empty zoom range
var ErrInvalidOptions = errors.New("invalid viewport options")

// Options tunes zoom step and clamp bounds
type Options struct {
	ZoomStep float64 `json:"zoomStep" yaml:"zoomStep"`
	MinScale float64 `json:"minScale" yaml:"minScale"`
	MaxScale float64 `json:"maxScale" yaml:"maxScale"`
}

// DefaultOptions returns the standard zoom tuning
func DefaultOptions() Options {
	return Options{
		ZoomStep: DefaultZoomStep,
		MinScale: DefaultMinScale,
		MaxScale: DefaultMaxScale,
	}
}

// Validate checks that the options keep the scale strictly positive
func (o Options) Validate() error {
	switch {
	case !(o.MinScale > 0):
		return fmt.Errorf("%w: min scale must be positive, got %v", ErrInvalidOptions, o.MinScale)
	case !(o.MaxScale >= o.MinScale) || math.IsInf(o.MaxScale, 0):
		return fmt.Errorf("%w: max scale must be finite and >= min scale, got %v", ErrInvalidOptions, o.MaxScale)
	case !(o.ZoomStep > 0):
		return fmt.Errorf("%w: zoom step must be positive, got %v", ErrInvalidOptions, o.ZoomStep)
	}
	return nil
}

// State is the pan/zoom transform: screen = world*Scale + Translate
type State struct {
	Translate Point   `json:"translate"`
	Scale     float64 `json:"scale"`
}

// Identity returns the untransformed state
func Identity() State {
	return State{Scale: 1}
}

// Finite reports whether every component of the transform is a finite number
func (s State) Finite() bool {
	return s.Translate.Finite() && !math.IsNaN(s.Scale) && !math.IsInf(s.Scale, 0)
}

// Controller owns a viewport's transform and pointer interaction state.
// It is not safe for concurrent use; each viewport has a single owner.
type Controller struct {
	opts  Options
	state State

	dragging  bool
	lastPoint Point
	hovered   *Rect
}

// New creates a controller at the identity transform
func New(opts Options) (*Controller, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{opts: opts}
	c.Reset()
	return c, nil
}

// NewDefault creates a controller with DefaultOptions
func NewDefault() *Controller {
	c, _ := New(DefaultOptions())
	return c
}

// Options returns the controller's tuning
func (c *Controller) Options() Options {
	return c.opts
}

// State returns the current transform
func (c *Controller) State() State {
	return c.state
}

// Restore replaces the transform, clamping the scale into range.
// A scale that is not a positive number restores the identity scale.
func (c *Controller) Restore(s State) {
	if math.IsNaN(s.Scale) || s.Scale <= 0 {
		s.Scale = 1
	}
	s.Scale = c.clamp(s.Scale)
	c.state = s
}

func (c *Controller) clamp(scale float64) float64 {
	return math.Max(c.opts.MinScale, math.Min(c.opts.MaxScale, scale))
}

// WorldToScreen maps a world point to screen pixels
func (c *Controller) WorldToScreen(p Point) Point {
	return p.Mul(c.state.Scale).Add(c.state.Translate)
}

// ScreenToWorld maps a screen pixel to world coordinates
func (c *Controller) ScreenToWorld(p Point) Point {
	return p.Sub(c.state.Translate).Div(c.state.Scale)
}

// ZoomAt steps the scale up (deltaSign > 0) or down (deltaSign < 0), keeping
// the world point under screenPoint fixed. A zero deltaSign does nothing.
func (c *Controller) ZoomAt(screenPoint Point, deltaSign int) {
	if deltaSign == 0 {
		return
	}
	// Resolve the anchor before the scale changes.
	anchor := c.ScreenToWorld(screenPoint)

	step := c.opts.ZoomStep
	if deltaSign < 0 {
		step = -step
	}
	c.state.Scale = c.clamp(c.state.Scale + step)
	c.state.Translate = screenPoint.Sub(anchor.Mul(c.state.Scale))
}

// PanBy shifts the view by a screen-space delta
func (c *Controller) PanBy(delta Point) {
	c.state.Translate = c.state.Translate.Add(delta)
}

// HitTest returns the first rectangle, in input order, containing the world
// point under screenPoint
func (c *Controller) HitTest(screenPoint Point, rects []Rect) (Rect, bool) {
	world := c.ScreenToWorld(screenPoint)
	for _, r := range rects {
		if r.Contains(world) {
			return r, true
		}
	}
	return Rect{}, false
}

// Reset returns to the identity transform, ends any drag and clears the hover
func (c *Controller) Reset() {
	c.state = Identity()
	c.dragging = false
	c.hovered = nil
}

// Wheel handles a wheel event at p. Scrolling down (positive deltaY) zooms out.
func (c *Controller) Wheel(p Point, deltaY float64) {
	switch {
	case deltaY > 0:
		c.ZoomAt(p, -1)
	case deltaY < 0:
		c.ZoomAt(p, 1)
	}
}

// PointerDown starts a drag at p
func (c *Controller) PointerDown(p Point) {
	c.dragging = true
	c.lastPoint = p
}

// PointerMove updates the hovered rectangle and pans if a drag is active.
// Hover is resolved against the transform in effect before the pan.
func (c *Controller) PointerMove(p Point, rects []Rect) (Rect, bool) {
	hit, ok := c.HitTest(p, rects)
	if ok {
		c.hovered = &hit
	} else {
		c.hovered = nil
	}

	if c.dragging {
		c.PanBy(p.Sub(c.lastPoint))
		c.lastPoint = p
	}
	return hit, ok
}

// PointerUp ends a drag. Leaving the surface should call it too.
func (c *Controller) PointerUp() {
	c.dragging = false
}

// Dragging reports whether a drag is in progress
func (c *Controller) Dragging() bool {
	return c.dragging
}

// Hovered returns the rectangle under the pointer after the last move
func (c *Controller) Hovered() (Rect, bool) {
	if c.hovered == nil {
		return Rect{}, false
	}
	return *c.hovered, true
}
