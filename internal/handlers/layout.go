// internal/handlers/layout.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ammerola/warehouse-crm/internal/viewport"
)

// LayoutHandler serves the floor plan and renders it for a client viewport.
// The server keeps no viewport state; each request carries its own.
type LayoutHandler struct {
	responder
	plan *viewport.FloorPlan
	opts viewport.Options
}

// NewLayoutHandler creates a new layout handler
func NewLayoutHandler(plan *viewport.FloorPlan, opts viewport.Options, logger *slog.Logger) (*LayoutHandler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &LayoutHandler{
		responder: responder{logger: logger.With(slog.String("handler", "layout"))},
		plan:      plan,
		opts:      opts,
	}, nil
}

// LayoutResponse is the body of GET /api/v1/layout
type LayoutResponse struct {
	Plan    *viewport.FloorPlan `json:"plan"`
	Options viewport.Options    `json:"options"`
}

// RenderRequest carries a viewport state and the input applied to it
// before drawing. Pointer positions are in screen pixels.
type RenderRequest struct {
	State       *viewport.State `json:"state,omitempty"`
	Pointer     *viewport.Point `json:"pointer,omitempty"`
	WheelDeltaY float64         `json:"wheelDeltaY,omitempty"`
	PanBy       *viewport.Point `json:"panBy,omitempty"`
	Reset       bool            `json:"reset,omitempty"`
}

// RenderResponse returns the resulting state and its draw commands
type RenderResponse struct {
	State    viewport.State         `json:"state"`
	Hovered  *viewport.Rect         `json:"hovered,omitempty"`
	Commands []viewport.DrawCommand `json:"commands"`
}

// GetLayout handles GET /api/v1/layout
func (h *LayoutHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, LayoutResponse{Plan: h.plan, Options: h.opts})
}

// RenderLayout handles POST /api/v1/layout/render
func (h *LayoutHandler) RenderLayout(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := viewport.New(h.opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create viewport",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if req.State != nil {
		c.Restore(*req.State)
	}
	if req.Reset {
		c.Reset()
	}
	if req.PanBy != nil {
		c.PanBy(*req.PanBy)
	}

	if req.Pointer != nil && req.WheelDeltaY != 0 {
		c.Wheel(*req.Pointer, req.WheelDeltaY)
	}

	state := c.State()
	if !state.Finite() {
		h.respondError(w, http.StatusBadRequest, "View state out of range")
		return
	}

	var hovered *viewport.Rect
	if req.Pointer != nil {
		if rect, ok := c.HitTest(*req.Pointer, h.plan.Pallets); ok {
			hovered = &rect
		}
	}

	h.respondJSON(w, http.StatusOK, RenderResponse{
		State:    state,
		Hovered:  hovered,
		Commands: viewport.Render(state, h.plan, hovered),
	})
}
