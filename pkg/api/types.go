package api

import (
	"time"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
)

// UnitRequest is the body of POST /units and PUT /units/{id}
type UnitRequest struct {
	Name          string           `json:"name"`
	TechnicalName string           `json:"technical_name,omitempty"`
	Kind          catalog.UnitKind `json:"kind"`
	// Active defaults to true when omitted
	Active *bool   `json:"active,omitempty"`
	TagIDs []int64 `json:"tag_ids,omitempty"`
}

func (r UnitRequest) unit(id int64) *catalog.Unit {
	return &catalog.Unit{
		ID:            id,
		Name:          r.Name,
		TechnicalName: r.TechnicalName,
		Kind:          r.Kind,
		Active:        r.Active == nil || *r.Active,
		TagIDs:        r.TagIDs,
	}
}

// UnitResponse is a unit with its versions, newest first
type UnitResponse struct {
	*catalog.Unit
	Versions []*catalog.Version `json:"versions"`
}

// TagRequest is the body of POST /tags
type TagRequest struct {
	Name  string `json:"name"`
	Color int    `json:"color,omitempty"`
}

// VersionRequest is the body of POST /units/{id}/versions
type VersionRequest struct {
	Version         string        `json:"version"`
	State           catalog.State `json:"state,omitempty"`
	PublicationDate *time.Time    `json:"publication_date,omitempty"`
}

// StateRequest is the body of PUT /versions/{id}/state
type StateRequest struct {
	State           catalog.State `json:"state"`
	PublicationDate *time.Time    `json:"publication_date,omitempty"`
}

// IncludesRequest is the body of PUT /versions/{id}/includes
type IncludesRequest struct {
	Includes []int64 `json:"includes"`
}

// CheckResponse is the body of an accepted dry run
type CheckResponse struct {
	Valid bool `json:"valid"`
}
