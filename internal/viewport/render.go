package viewport

import (
	"fmt"
	"math"
	"strings"
)

// Op names a drawing primitive
type Op string

// Drawing primitives
const (
	OpClear      Op = "clear"
	OpFillRect   Op = "fillRect"
	OpStrokeRect Op = "strokeRect"
	OpFillText   Op = "fillText"
)

// Palette
const (
	ColorBoundary    = "#000000"
	ColorAisle       = "#e2e8f0"
	ColorStockLow    = "#feb2b2"
	ColorStockMedium = "#fefcbf"
	ColorStockHigh   = "#c6f6d5"
	ColorPalletEdge  = "#2d3748"
	ColorInfoBox     = "rgba(0, 0, 0, 0.8)"
	ColorInfoText    = "#ffffff"
)

// Stock thresholds for pallet coloring
const (
	LowStockBelow    = 50
	MediumStockBelow = 100
)

const (
	fontFamily     = "Arial"
	labelFontSize  = 10
	infoFontSize   = 12
	infoOffsetX    = 45
	infoWidth      = 120
	infoHeight     = 60
	infoLineHeight = 15
	gridCellSize   = 100
)

// DrawCommand is one backend-neutral drawing instruction. All coordinates
// and sizes are in screen pixels.
type DrawCommand struct {
	Op         Op      `json:"op"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	Color      string  `json:"color,omitempty"`
	LineWidth  float64 `json:"lineWidth,omitempty"`
	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	Align      string  `json:"align,omitempty"`
}

// StockColor returns the fill for a pallet with the given stock level
func StockColor(level int) string {
	switch {
	case level < LowStockBelow:
		return ColorStockLow
	case level < MediumStockBelow:
		return ColorStockMedium
	default:
		return ColorStockHigh
	}
}

// GridCell returns the coarse location cell of a world point
func GridCell(p Point) (int, int) {
	return int(math.Floor(p.X / gridCellSize)), int(math.Floor(p.Y / gridCellSize))
}

// ShortLabel is the text printed on a pallet: the last word of its label
func ShortLabel(label string) string {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Render draws plan under state. The boundary and aisles come first, then
// pallets in input order, then an info box for hovered when it is non-nil.
func Render(state State, plan *FloorPlan, hovered *Rect) []DrawCommand {
	s := state.Scale
	toScreen := func(x, y float64) (float64, float64) {
		return x*s + state.Translate.X, y*s + state.Translate.Y
	}

	cmds := make([]DrawCommand, 0, 2+len(plan.Aisles)+3*len(plan.Pallets)+4)
	cmds = append(cmds, DrawCommand{Op: OpClear})

	bx, by := toScreen(0, 0)
	cmds = append(cmds, DrawCommand{
		Op: OpStrokeRect, X: bx, Y: by,
		Width: plan.Width * s, Height: plan.Height * s,
		Color: ColorBoundary, LineWidth: 2 * s,
	})

	for _, a := range plan.Aisles {
		x, y := toScreen(a.X, a.Y)
		cmds = append(cmds, DrawCommand{
			Op: OpFillRect, X: x, Y: y,
			Width: a.Width * s, Height: a.Height * s,
			Color: ColorAisle,
		})
	}

	for _, p := range plan.Pallets {
		x, y := toScreen(p.X, p.Y)
		w, h := p.Width*s, p.Height*s
		tx, ty := toScreen(p.X+p.Width/2, p.Y+p.Height/2+5)
		cmds = append(cmds,
			DrawCommand{Op: OpFillRect, X: x, Y: y, Width: w, Height: h, Color: StockColor(p.StockLevel)},
			DrawCommand{Op: OpStrokeRect, X: x, Y: y, Width: w, Height: h, Color: ColorPalletEdge, LineWidth: s},
			DrawCommand{
				Op: OpFillText, X: tx, Y: ty, Text: ShortLabel(p.Label),
				Color: ColorPalletEdge, FontSize: labelFontSize * s, FontFamily: fontFamily, Align: "center",
			},
		)
	}

	if hovered != nil {
		cmds = append(cmds, infoBox(state, *hovered)...)
	}
	return cmds
}

// infoBox is drawn in screen space at a fixed size regardless of zoom
func infoBox(state State, r Rect) []DrawCommand {
	origin := r.Origin().Mul(state.Scale).Add(state.Translate)
	cx, cy := GridCell(r.Origin())
	textX := origin.X + infoOffsetX + 5

	line := func(n int, text string) DrawCommand {
		return DrawCommand{
			Op: OpFillText, X: textX, Y: origin.Y + float64(n*infoLineHeight), Text: text,
			Color: ColorInfoText, FontSize: infoFontSize, FontFamily: fontFamily, Align: "left",
		}
	}

	return []DrawCommand{
		{
			Op: OpFillRect, X: origin.X + infoOffsetX, Y: origin.Y,
			Width: infoWidth, Height: infoHeight, Color: ColorInfoBox,
		},
		line(1, "Product: "+r.Label),
		line(2, fmt.Sprintf("Stock: %d", r.StockLevel)),
		line(3, fmt.Sprintf("Location: (%d, %d)", cx, cy)),
	}
}
