package api

import (
	"net/http"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/httputil"
)

// createVersion handles POST /units/{id}/versions
func (s *Server) createVersion(w http.ResponseWriter, r *http.Request) {
	unitID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req VersionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	version := &catalog.Version{
		UnitID:          unitID,
		Version:         req.Version,
		State:           req.State,
		PublicationDate: req.PublicationDate,
	}
	if err := s.registry.CreateVersion(r.Context(), version); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, version)
}

// listVersions handles GET /units/{id}/versions[?constraint=~1.2]
func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	unitID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if _, err := s.registry.GetUnit(r.Context(), unitID); err != nil {
		writeError(w, r, err)
		return
	}

	versions, err := s.registry.ListVersions(r.Context(), unitID, httputil.ParseQueryString(r, "constraint", ""))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, versions)
}

// getVersion handles GET /versions/{id}
func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	version, err := s.registry.GetVersion(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, version)
}

// deleteVersion handles DELETE /versions/{id}
func (s *Server) deleteVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.registry.DeleteVersion(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// setVersionState handles PUT /versions/{id}/state
func (s *Server) setVersionState(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req StateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := s.registry.SetVersionState(r.Context(), id, req.State, req.PublicationDate); err != nil {
		writeError(w, r, err)
		return
	}
	version, err := s.registry.GetVersion(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, version)
}
