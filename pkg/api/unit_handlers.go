package api

import (
	"net/http"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/httputil"
)

// createUnit handles POST /units
func (s *Server) createUnit(w http.ResponseWriter, r *http.Request) {
	var req UnitRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	unit := req.unit(0)
	if err := s.registry.CreateUnit(r.Context(), unit); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, unit)
}

// listUnits handles GET /units
func (s *Server) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.registry.ListUnits(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, units)
}

// getUnit handles GET /units/{id}
func (s *Server) getUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	unit, err := s.registry.GetUnit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	versions, err := s.registry.ListVersions(r.Context(), id, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, UnitResponse{Unit: unit, Versions: versions})
}

// updateUnit handles PUT /units/{id}
func (s *Server) updateUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req UnitRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	unit := req.unit(id)
	if err := s.registry.UpdateUnit(r.Context(), unit); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, unit)
}

// deleteUnit handles DELETE /units/{id}
func (s *Server) deleteUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.registry.DeleteUnit(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// createTag handles POST /tags
func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	tag := &catalog.Tag{Name: req.Name, Color: req.Color}
	if err := s.registry.CreateTag(r.Context(), tag); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, tag)
}

// listTags handles GET /tags
func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.registry.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, tags)
}
