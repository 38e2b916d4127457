package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leapdash/internal/state"
	"github.com/leapstack-labs/leapdash/pkg/builder"
	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/dashboard"
	"github.com/leapstack-labs/leapdash/pkg/layout"
	"github.com/leapstack-labs/leapdash/pkg/pipeline"
	"github.com/leapstack-labs/leapdash/pkg/schema"
	"github.com/leapstack-labs/leapdash/pkg/templates"
	"github.com/leapstack-labs/leapdash/pkg/viz"
)

// TemplateView is the wire form of a registered template.
type TemplateView struct {
	Name                string                `json:"name"`
	Description         string                `json:"description"`
	Keywords            []string              `json:"keywords"`
	RequiredDataSources []core.SourceType     `json:"requiredDataSources"`
	OptionalDataSources []core.SourceType     `json:"optionalDataSources,omitempty"`
	Score               int                   `json:"score,omitempty"`
	Definition          *templates.Definition `json:"definition,omitempty"`
}

func viewOf(t *templates.Template) TemplateView {
	return TemplateView{
		Name:                t.Name,
		Description:         t.Description,
		Keywords:            t.Keywords,
		RequiredDataSources: t.RequiredDataSources,
		OptionalDataSources: t.OptionalDataSources,
	}
}

func (s *Server) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	list := s.cfg.Registry.List()
	out := make([]TemplateView, 0, len(list))
	for _, t := range list {
		out = append(out, viewOf(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearchTemplates(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, errors.New("query parameter q is required"))
		return
	}
	matches := s.cfg.Registry.Find(q)
	out := make([]TemplateView, 0, len(matches))
	for _, m := range matches {
		v := viewOf(m.Template)
		v.Score = m.Score
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleShowTemplate expands a template; query parameters become template
// parameters.
func (s *Server) handleShowTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := s.cfg.Registry.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("template %q not found", name))
		return
	}
	params := templates.Params{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	def := t.Build(params)
	v := viewOf(t)
	v.Definition = &def
	writeJSON(w, http.StatusOK, v)
}

// BuildRequest is the body of POST /api/dashboards.
type BuildRequest struct {
	Description string          `json:"description"`
	Context     builder.Context `json:"context"`
}

func (s *Server) handleBuildDashboard(w http.ResponseWriter, r *http.Request) {
	var req BuildRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, errors.New("description is required"))
		return
	}
	res, err := s.cfg.Builder.Build(r.Context(), req.Description, req.Context)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.metrics.ObserveBuild(res.Template)
	writeJSON(w, http.StatusOK, res)
}

// RowsRequest carries a data sample for analysis endpoints.
type RowsRequest struct {
	Rows    []core.Row `json:"rows"`
	Columns []string   `json:"columns,omitempty"`
	Intent  string     `json:"intent,omitempty"`
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	var req RowsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, schema.AnalyzeColumns(req.Rows, req.Columns))
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RowsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	recs := viz.RecommendFor(schema.AnalyzeColumns(req.Rows, req.Columns), req.Intent)
	if recs == nil {
		recs = []viz.Config{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// LayoutRequest is the body of POST /api/layout. Items default to the
// archetype's template when empty.
type LayoutRequest struct {
	Items         []layout.Item       `json:"items"`
	Archetype     layout.Archetype    `json:"archetype,omitempty"`
	Goal          layout.Goal         `json:"goal,omitempty"`
	ViewportWidth float64             `json:"viewportWidth,omitempty"`
	Constraints   *layout.Constraints `json:"constraints,omitempty"`
}

// LayoutResponse is the result of POST /api/layout.
type LayoutResponse struct {
	Positions layout.Positions `json:"positions"`
	Bounds    core.Position    `json:"bounds"`
	Unplaced  []string         `json:"unplaced,omitempty"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	items := req.Items
	if len(items) == 0 && req.Archetype != "" {
		tmpl, ok := layout.Template(req.Archetype)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Errorf("unknown archetype %q", req.Archetype))
			return
		}
		items = tmpl
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("items or archetype is required"))
		return
	}

	c := s.cfg.Constraints
	if req.Constraints != nil {
		c = *req.Constraints
	}
	eng := layout.New(c, layout.WithLogger(s.logger))
	pos := eng.Arrange(items)
	if req.Goal != "" {
		pos = eng.OptimizeFor(pos, items, req.Goal)
	}
	if req.ViewportWidth > 0 {
		pos = eng.MakeResponsive(pos, req.ViewportWidth)
	}

	resp := LayoutResponse{Positions: pos, Bounds: pos.Bounds()}
	for _, it := range items {
		if _, ok := pos[it.ID]; !ok {
			resp.Unplaced = append(resp.Unplaced, it.ID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PipelineRequest is the body of POST /api/pipeline. Rows, when present, are
// sample data the expression nodes are previewed against.
type PipelineRequest struct {
	Description string     `json:"description"`
	Rows        []core.Row `json:"rows,omitempty"`
}

// PipelineResponse describes the pipeline inferred from a description.
type PipelineResponse struct {
	Pipeline   pipeline.Pipeline        `json:"pipeline"`
	Validation pipeline.Report          `json:"validation"`
	Order      []string                 `json:"order,omitempty"`
	Levels     [][]string               `json:"levels,omitempty"`
	Preview    []pipeline.ColumnPreview `json:"preview,omitempty"`
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	var req PipelineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b := pipeline.FromDescription(req.Description, pipeline.WithLogger(s.logger))
	p := b.Pipeline()
	resp := PipelineResponse{Pipeline: p, Validation: b.Validate()}
	g := pipeline.NewGraph(p)
	if order, err := g.TopologicalOrder(); err == nil {
		resp.Order = order
	}
	if levels, err := g.Levels(); err == nil {
		resp.Levels = levels
	}
	if len(req.Rows) > 0 {
		preview, err := pipeline.Preview(p, req.Rows, 0)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		resp.Preview = preview
	}
	writeJSON(w, http.StatusOK, resp)
}

// SaveRequest is the body of POST /api/saved.
type SaveRequest struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Template    string          `json:"template,omitempty"`
	State       dashboard.State `json:"state"`
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	list, err := s.cfg.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSaveDashboard(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}
	d := &state.SavedDashboard{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Template:    req.Template,
		State:       req.State,
	}
	if err := s.cfg.Store.Save(r.Context(), d); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.hub.Broadcast()
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetSaved(w http.ResponseWriter, r *http.Request) {
	d, err := s.cfg.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteSaved(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.hub.Broadcast()
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	if errors.Is(err, state.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
