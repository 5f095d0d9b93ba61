package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tec-dashboard/internal/export"
	"github.com/sells-group/tec-dashboard/internal/fetcher"
	"github.com/sells-group/tec-dashboard/internal/session"
	"github.com/sells-group/tec-dashboard/internal/snapshot"
	"github.com/sells-group/tec-dashboard/internal/tec"
)

// Query parameters selecting the filtered view.
const (
	ParamOwner     = "owner"
	ParamStatus    = "status"
	ParamAgreement = "agreement"
)

// Handler holds API route handlers.
type Handler struct {
	mgr *session.Manager
}

// NewHandler creates a new Handler.
func NewHandler(mgr *session.Manager) *Handler {
	return &Handler{mgr: mgr}
}

// CreateSession handles POST /api/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, _ *http.Request) {
	s := h.mgr.Create()
	writeJSON(w, http.StatusCreated, SessionResponse{ID: s.ID})
}

// EndSession handles DELETE /api/sessions/{id}.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.End(chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh handles POST /api/sessions/{id}/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, err := h.mgr.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	snap, err := s.Refresh(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(snap))
}

// Snapshot handles GET /api/sessions/{id}/snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(snap))
}

// Filters handles GET /api/sessions/{id}/filters.
func (h *Handler) Filters(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tec.DefaultSelection(snap.Dataset))
}

// Records handles GET /api/sessions/{id}/records.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	view, ok := h.view(w, r)
	if !ok {
		return
	}
	table := view.Table()
	writeJSON(w, http.StatusOK, RecordsResponse{
		Columns: table.Header,
		Rows:    table.Rows,
		Count:   view.Len(),
	})
}

// Summary handles GET /api/sessions/{id}/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	view, ok := h.view(w, r)
	if !ok {
		return
	}
	s := tec.Summarize(view)
	writeJSON(w, http.StatusOK, SummaryResponse{Summary: s, DateRangeLabel: s.DateRange.String()})
}

// PlantTypes handles GET /api/sessions/{id}/plant-types.
func (h *Handler) PlantTypes(w http.ResponseWriter, r *http.Request) {
	view, ok := h.view(w, r)
	if !ok {
		return
	}
	agg := tec.CapacityByPlantTypeOwner(view)
	writeJSON(w, http.StatusOK, PlantTypesResponse{PlantOwnerCapacity: agg, Total: agg.Total()})
}

// Hierarchy handles GET /api/sessions/{id}/hierarchy.
func (h *Handler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	view, ok := h.view(w, r)
	if !ok {
		return
	}
	hier := tec.CapacityHierarchy(view)
	writeJSON(w, http.StatusOK, HierarchyResponse{Leaves: hier.Leaves, Nodes: hier.Nodes(), Total: hier.Total()})
}

// Distribution handles GET /api/sessions/{id}/distribution.
func (h *Handler) Distribution(w http.ResponseWriter, r *http.Request) {
	view, ok := h.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tec.CapacityDistribution(view))
}

// Timeline handles GET /api/sessions/{id}/timeline.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	view, ok := h.view(w, r)
	if !ok {
		return
	}
	tl := tec.CapacityTimeline(view)
	writeJSON(w, http.StatusOK, TimelineResponse{Points: tl, Total: tl.Total()})
}

// Export handles GET /api/sessions/{id}/export.xlsx.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	view, ok := h.view(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="tec-register.xlsx"`)
	if err := export.WriteWorkbook(w, view); err != nil {
		zap.L().Error("export workbook failed", zap.String("component", "api"), zap.Error(err))
	}
}

// snapshot resolves the session's snapshot, writing the error response
// itself when that fails.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (*snapshot.Snapshot, bool) {
	s, err := h.mgr.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return nil, false
	}
	snap, err := s.Snapshot(r.Context())
	if err != nil {
		h.fail(w, err)
		return nil, false
	}
	return snap, true
}

// view returns the session's dataset filtered by the request's query.
func (h *Handler) view(w http.ResponseWriter, r *http.Request) (*tec.Dataset, bool) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return nil, false
	}
	sel := presetFromQuery(r).Resolve(snap.Dataset)
	return tec.Filter(snap.Dataset, sel), true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, session.ErrNotFound), eris.Is(err, snapshot.ErrClosed):
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
	case eris.Is(err, tec.ErrSchemaDrift):
		zap.L().Error("register schema changed", zap.String("component", "api"), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorBody("register columns changed upstream: "+err.Error()))
	default:
		zap.L().Error("request failed", zap.String("component", "api"), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// presetFromQuery reads the filter parameters. An absent parameter leaves
// its dimension unset; a present one, even empty, lists exactly the allowed
// values. A parameter given once is split on commas; a repeated parameter
// is taken verbatim, so values containing a comma must be repeated.
func presetFromQuery(r *http.Request) tec.Preset {
	q := r.URL.Query()
	return tec.Preset{
		Owners:     queryList(q[ParamOwner]),
		Statuses:   queryList(q[ParamStatus]),
		Agreements: queryList(q[ParamAgreement]),
	}
}

func queryList(raw []string) []string {
	if raw == nil {
		return nil
	}
	values := raw
	if len(raw) == 1 {
		values = strings.Split(raw[0], ",")
	}
	out := []string{}
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func newSnapshotResponse(snap *snapshot.Snapshot) SnapshotResponse {
	dr := tec.ConnectionDateRange(snap.Dataset)
	return SnapshotResponse{
		Freshness:      snap.Freshness,
		FreshnessLabel: snap.Freshness.String(),
		FetchedAt:      snap.FetchedAt,
		Degraded:       snap.Degraded,
		Reason:         snap.Reason,
		DateRange:      dr,
		DateRangeLabel: dr.String(),
		Rows:           snap.Dataset.Len(),
		ExtraColumns:   snap.Dataset.ExtraColumns,
	}
}

// SessionResponse is returned when a session is created.
type SessionResponse struct {
	ID string `json:"id"`
}

// SnapshotResponse describes the loaded register.
type SnapshotResponse struct {
	Freshness      fetcher.Freshness `json:"freshness"`
	FreshnessLabel string            `json:"freshness_label"`
	FetchedAt      time.Time         `json:"fetched_at"`
	Degraded       bool              `json:"degraded"`
	Reason         string            `json:"reason,omitempty"`
	DateRange      tec.DateRange     `json:"date_range"`
	DateRangeLabel string            `json:"date_range_label"`
	Rows           int               `json:"rows"`
	ExtraColumns   []string          `json:"extra_columns,omitempty"`
}

// RecordsResponse is the filtered view as a canonical table.
type RecordsResponse struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Count   int        `json:"count"`
}

// SummaryResponse carries the headline metrics.
type SummaryResponse struct {
	tec.Summary
	DateRangeLabel string `json:"date_range_label"`
}

// PlantTypesResponse is the plant type by owner matrix.
type PlantTypesResponse struct {
	tec.PlantOwnerCapacity
	Total float64 `json:"total_mw"`
}

// HierarchyResponse is the owner, plant type, status tree.
type HierarchyResponse struct {
	Leaves []tec.HierarchyLeaf `json:"leaves"`
	Nodes  []tec.HierarchyNode `json:"nodes"`
	Total  float64             `json:"total_mw"`
}

// TimelineResponse is the capacity timeline.
type TimelineResponse struct {
	Points tec.Timeline `json:"points"`
	Total  float64      `json:"total_mw"`
}
