package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/dependencies"
	"github.com/platinummonkey/unitgraph/pkg/httputil"
	"github.com/platinummonkey/unitgraph/pkg/observability"
)

// RejectionResponse is the body of a rejected includes mutation
type RejectionResponse struct {
	Error    string                    `json:"error"`
	Kind     dependencies.Kind         `json:"kind"`
	Existing *dependencies.VersionRef  `json:"existing,omitempty"`
	Rejected *dependencies.VersionRef  `json:"rejected,omitempty"`
	Cycle    []dependencies.VersionRef `json:"cycle,omitempty"`
}

// writeError maps registry errors to status codes
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *dependencies.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.WriteJSON(w, http.StatusConflict, RejectionResponse{
			Error:    verr.Error(),
			Kind:     verr.Kind,
			Existing: verr.Existing,
			Rejected: verr.Rejected,
			Cycle:    verr.Cycle,
		})
	case errors.Is(err, catalog.ErrNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, catalog.ErrDuplicate):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, catalog.ErrInvalid):
		httputil.WriteBadRequest(w, err.Error())
	default:
		observability.FromContext(r.Context()).WithError(err).Error("Request failed")
		httputil.WriteInternalError(w, errors.New("internal server error"))
	}
}
