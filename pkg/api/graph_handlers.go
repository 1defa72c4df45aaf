package api

import (
	"net/http"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/httputil"
)

// edge parses {id} and {childId}
func edge(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	parent, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return 0, 0, false
	}
	child, ok := httputil.ParsePathInt64OrError(w, r, "childId")
	if !ok {
		return 0, 0, false
	}
	return parent, child, true
}

// addInclude handles POST /versions/{id}/includes/{childId}
func (s *Server) addInclude(w http.ResponseWriter, r *http.Request) {
	parent, child, ok := edge(w, r)
	if !ok {
		return
	}
	if err := s.registry.AddInclude(r.Context(), parent, child); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeIncludes(w, r, parent)
}

// removeInclude handles DELETE /versions/{id}/includes/{childId}
func (s *Server) removeInclude(w http.ResponseWriter, r *http.Request) {
	parent, child, ok := edge(w, r)
	if !ok {
		return
	}
	if err := s.registry.RemoveInclude(r.Context(), parent, child); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// checkInclude handles POST /versions/{id}/includes/{childId}/check
func (s *Server) checkInclude(w http.ResponseWriter, r *http.Request) {
	parent, child, ok := edge(w, r)
	if !ok {
		return
	}
	if err := s.registry.CheckInclude(r.Context(), parent, child); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, CheckResponse{Valid: true})
}

// replaceIncludes handles PUT /versions/{id}/includes
func (s *Server) replaceIncludes(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req IncludesRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := s.registry.ReplaceIncludes(r.Context(), id, req.Includes); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeIncludes(w, r, id)
}

// listIncludes handles GET /versions/{id}/includes
func (s *Server) listIncludes(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	s.writeIncludes(w, r, id)
}

func (s *Server) writeIncludes(w http.ResponseWriter, r *http.Request, id int64) {
	versions, err := s.registry.Includes(r.Context(), id)
	writeVersions(w, r, versions, err)
}

// listIncludedIn handles GET /versions/{id}/included-in
func (s *Server) listIncludedIn(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	versions, err := s.registry.IncludedIn(r.Context(), id)
	writeVersions(w, r, versions, err)
}

// dependencies handles GET /versions/{id}/dependencies[?order=topological]
func (s *Server) dependencies(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	order, err := httputil.ParseQueryChoice(r, "order", "", "topological")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	versions, err := s.registry.Dependencies(r.Context(), id, order == "topological")
	writeVersions(w, r, versions, err)
}

// dependents handles GET /versions/{id}/dependents
func (s *Server) dependents(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	versions, err := s.registry.Dependents(r.Context(), id)
	writeVersions(w, r, versions, err)
}

// impact handles GET /versions/{id}/impact
func (s *Server) impact(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	analysis, err := s.registry.Impact(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, analysis)
}

// audit handles POST /graph/audit
func (s *Server) audit(w http.ResponseWriter, r *http.Request) {
	report, err := s.registry.Audit(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// writeVersions writes a version list, never as null
func writeVersions(w http.ResponseWriter, r *http.Request, versions []*catalog.Version, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if versions == nil {
		versions = []*catalog.Version{}
	}
	httputil.WriteSuccess(w, versions)
}
