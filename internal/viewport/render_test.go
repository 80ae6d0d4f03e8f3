package viewport_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/warehouse-crm/internal/viewport"
)

func smallPlan() *viewport.FloorPlan {
	return &viewport.FloorPlan{
		Width:  200,
		Height: 100,
		Aisles: []viewport.Aisle{{ID: "a1", X: 90, Y: 0, Width: 20, Height: 100}},
		Pallets: []viewport.Rect{
			{ID: "p1", X: 10, Y: 10, Width: 40, Height: 40, StockLevel: 12, Label: "Part D"},
			{ID: "p2", X: 130, Y: 40, Width: 40, Height: 40, StockLevel: 150, Label: "Widget A"},
		},
	}
}

func TestStockColor(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{0, viewport.ColorStockLow},
		{49, viewport.ColorStockLow},
		{50, viewport.ColorStockMedium},
		{99, viewport.ColorStockMedium},
		{100, viewport.ColorStockHigh},
		{5000, viewport.ColorStockHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, viewport.StockColor(tt.level), "level %d", tt.level)
	}
}

func TestGridCell(t *testing.T) {
	x, y := viewport.GridCell(viewport.Point{X: 250, Y: 99})
	assert.Equal(t, 2, x)
	assert.Equal(t, 0, y)

	x, y = viewport.GridCell(viewport.Point{X: -1, Y: 100})
	assert.Equal(t, -1, x)
	assert.Equal(t, 1, y)
}

func TestShortLabel(t *testing.T) {
	assert.Equal(t, "A", viewport.ShortLabel("Widget A"))
	assert.Equal(t, "Bolts", viewport.ShortLabel("Bolts"))
	assert.Equal(t, "", viewport.ShortLabel("   "))
}

func TestRender_IdentityLayout(t *testing.T) {
	cmds := viewport.Render(viewport.Identity(), smallPlan(), nil)

	// clear + boundary + 1 aisle + 3 per pallet
	require.Len(t, cmds, 1+1+1+3*2)

	assert.Equal(t, viewport.OpClear, cmds[0].Op)
	assert.Equal(t, viewport.DrawCommand{
		Op: viewport.OpStrokeRect, Width: 200, Height: 100,
		Color: viewport.ColorBoundary, LineWidth: 2,
	}, cmds[1])
	assert.Equal(t, viewport.DrawCommand{
		Op: viewport.OpFillRect, X: 90, Width: 20, Height: 100, Color: viewport.ColorAisle,
	}, cmds[2])

	assert.Equal(t, viewport.ColorStockLow, cmds[3].Color)
	assert.Equal(t, viewport.OpStrokeRect, cmds[4].Op)
	assert.Equal(t, viewport.DrawCommand{
		Op: viewport.OpFillText, X: 30, Y: 35, Text: "D",
		Color: viewport.ColorPalletEdge, FontSize: 10, FontFamily: "Arial", Align: "center",
	}, cmds[5])
	assert.Equal(t, viewport.ColorStockHigh, cmds[6].Color)
}

func TestRender_AppliesTransform(t *testing.T) {
	state := viewport.State{Translate: viewport.Point{X: 5, Y: -5}, Scale: 2}
	cmds := viewport.Render(state, smallPlan(), nil)

	want := viewport.DrawCommand{
		Op: viewport.OpFillRect, X: 25, Y: 15, Width: 80, Height: 80, Color: viewport.ColorStockLow,
	}
	if diff := cmp.Diff(want, cmds[3], approx); diff != "" {
		t.Errorf("pallet fill mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 20, cmds[5].FontSize, 1e-9)
	assert.InDelta(t, 2, cmds[4].LineWidth, 1e-9)
}

func TestRender_HoverInfoBoxIsScreenSpace(t *testing.T) {
	plan := smallPlan()
	state := viewport.State{Translate: viewport.Point{X: 100, Y: 50}, Scale: 3}
	hovered := plan.Pallets[1]

	cmds := viewport.Render(state, plan, &hovered)
	info := cmds[len(cmds)-4:]

	// pallet at (130,40) lands on screen at (490,170)
	want := []viewport.DrawCommand{
		{Op: viewport.OpFillRect, X: 535, Y: 170, Width: 120, Height: 60, Color: viewport.ColorInfoBox},
		{Op: viewport.OpFillText, X: 540, Y: 185, Text: "Product: Widget A", Color: viewport.ColorInfoText, FontSize: 12, FontFamily: "Arial", Align: "left"},
		{Op: viewport.OpFillText, X: 540, Y: 200, Text: "Stock: 150", Color: viewport.ColorInfoText, FontSize: 12, FontFamily: "Arial", Align: "left"},
		{Op: viewport.OpFillText, X: 540, Y: 215, Text: "Location: (1, 0)", Color: viewport.ColorInfoText, FontSize: 12, FontFamily: "Arial", Align: "left"},
	}
	if diff := cmp.Diff(want, info, approx); diff != "" {
		t.Errorf("info box mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_IsPure(t *testing.T) {
	plan := smallPlan()
	state := viewport.State{Translate: viewport.Point{X: 3, Y: 4}, Scale: 1.5}

	first := viewport.Render(state, plan, nil)
	second := viewport.Render(state, plan, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, smallPlan(), plan)
}
