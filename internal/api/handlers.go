package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/OlivierFch/sky-track/internal/httputil"
	"github.com/OlivierFch/sky-track/internal/scene"
	"github.com/OlivierFch/sky-track/internal/tle"
	"github.com/OlivierFch/sky-track/internal/tracker"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 4 << 10

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

type addEntityRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type clickRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type surfaceRequest struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type visibilityRequest struct {
	Mode string `json:"mode"`
}

type selectionResponse struct {
	Selected string `json:"selected"`
	Focusing bool   `json:"focusing"`
}

type entityResponse struct {
	tracker.Info
	Scene *scene.EntityView `json:"scene,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (h *handlers) entity(id string) (entityResponse, bool) {
	info, ok := h.deps.Tracker.Info(id)
	if !ok {
		return entityResponse{}, false
	}
	resp := entityResponse{Info: info}
	if view, ok := h.deps.Engine.Entity(id); ok {
		resp.Scene = &view
	}
	return resp, true
}

func (h *handlers) listEntities(w http.ResponseWriter, r *http.Request) {
	infos := h.deps.Tracker.List()
	out := make([]entityResponse, 0, len(infos))
	for _, info := range infos {
		resp := entityResponse{Info: info}
		if view, ok := h.deps.Engine.Entity(info.ID); ok {
			resp.Scene = &view
		}
		out = append(out, resp)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entities": out})
}

func (h *handlers) getEntity(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.entity(r.PathValue("id"))
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "unknown entity")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *handlers) addEntity(w http.ResponseWriter, r *http.Request) {
	var req addEntityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Color != "" && !colorPattern.MatchString(req.Color) {
		httputil.WriteError(w, http.StatusBadRequest, "color must be #rrggbb")
		return
	}

	if _, err := h.deps.Tracker.Add(r.Context(), req.Name, req.Color); err != nil {
		h.writeResolveError(w, req.Name, err)
		return
	}

	resp, _ := h.entity(req.Name)
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *handlers) removeEntity(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Tracker.Untrack(r.PathValue("id")); err != nil {
		if errors.Is(err, tracker.ErrUnknownID) {
			httputil.WriteError(w, http.StatusNotFound, "unknown entity")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) selection() selectionResponse {
	id, _ := h.deps.Engine.Selected()
	return selectionResponse{Selected: id, Focusing: h.deps.Engine.Focusing()}
}

func (h *handlers) getSelection(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.selection())
}

// toggleSelection selects id, or clears the selection when id is already
// selected.
func (h *handlers) toggleSelection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.deps.Engine.Entity(id); !ok {
		httputil.WriteError(w, http.StatusNotFound, "unknown entity")
		return
	}
	if current, ok := h.deps.Engine.Selected(); ok && current == id {
		h.deps.Engine.ClearSelection()
	} else {
		h.deps.Engine.SelectByID(id)
	}
	httputil.WriteJSON(w, http.StatusOK, h.selection())
}

func (h *handlers) clearSelection(w http.ResponseWriter, r *http.Request) {
	h.deps.Engine.ClearSelection()
	httputil.WriteJSON(w, http.StatusOK, h.selection())
}

func (h *handlers) click(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decodeJSON(w, r, &req); err != nil || req.X == nil || req.Y == nil {
		httputil.WriteError(w, http.StatusBadRequest, "x and y are required")
		return
	}
	h.deps.Engine.HandleClick(*req.X, *req.Y)
	httputil.WriteJSON(w, http.StatusOK, h.selection())
}

func (h *handlers) getSurface(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.deps.Engine.Surface())
}

// setSurface resizes the render surface clicks are projected through.
func (h *handlers) setSurface(w http.ResponseWriter, r *http.Request) {
	var req surfaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !(req.Width > 0) || !(req.Height > 0) {
		httputil.WriteError(w, http.StatusBadRequest, "width and height must be positive")
		return
	}
	s := scene.Surface{Left: req.Left, Top: req.Top, Width: req.Width, Height: req.Height}
	h.deps.Engine.Resize(s)
	httputil.WriteJSON(w, http.StatusOK, s)
}

func (h *handlers) setVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var mode scene.Visibility
	switch req.Mode {
	case string(scene.Visible), string(scene.Hidden):
		mode = scene.Visibility(req.Mode)
		h.deps.Engine.SetVisibility(mode)
	case "toggle":
		mode = h.deps.Engine.Toggle()
	default:
		httputil.WriteError(w, http.StatusBadRequest, "mode must be visible, hidden or toggle")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, visibilityRequest{Mode: string(mode)})
}

func (h *handlers) getTLE(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	eph, err := h.deps.Resolver.Resolve(r.Context(), name)
	if err != nil {
		h.writeResolveError(w, name, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"name":    eph.Name,
		"line1":   eph.Line1,
		"line2":   eph.Line2,
		"noradId": eph.NORADID(),
		"epoch":   eph.Epoch(),
	})
}

func (h *handlers) evict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := tle.ParseEvictMode(q.Get("mode"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := q.Get("name")
	if mode == tle.EvictSingle && name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name is required for mode single")
		return
	}

	removed, err := h.deps.Cache.Evict(mode, name)
	if err != nil {
		h.logger.Error("cache eviction failed", "component", "api", "mode", mode, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "cache eviction failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"mode": mode, "removed": removed})
}

// writeResolveError maps resolution failures onto HTTP statuses.
func (h *handlers) writeResolveError(w http.ResponseWriter, name string, err error) {
	var fetchErr *tle.FetchError
	var parseErr *tle.ParseError
	switch {
	case errors.As(err, &fetchErr):
		h.logger.Warn("TLE fetch failed", "component", "api", "name", name, "error", err)
		httputil.WriteError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &parseErr):
		h.logger.Warn("TLE parse failed", "component", "api", "name", name, "error", err)
		httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("resolve failed", "component", "api", "name", name, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
