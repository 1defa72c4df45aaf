package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a unit, version or tag does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned for a second version string on one unit or a
	// second tag with the same name
	ErrDuplicate = errors.New("already exists")
	// ErrInvalid is returned for missing or malformed fields
	ErrInvalid = errors.New("invalid")
)

// UnitKind is the kind of deployable component a unit represents
type UnitKind string

const (
	KindConfiguration UnitKind = "configuration"
	KindExtension     UnitKind = "extension"
	KindLibrary       UnitKind = "library"
)

// Valid reports whether k is a known kind
func (k UnitKind) Valid() bool {
	switch k {
	case KindConfiguration, KindExtension, KindLibrary:
		return true
	}
	return false
}

// State is the lifecycle state of a version. Any state can be set from any other.
type State string

const (
	StateDevelopment State = "development"
	StatePublished   State = "published"
	StateUnsupported State = "unsupported"
)

// Valid reports whether s is a known state
func (s State) Valid() bool {
	switch s {
	case StateDevelopment, StatePublished, StateUnsupported:
		return true
	}
	return false
}

// Tag labels units
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color int    `json:"color"`
}

// Unit is a logical deployable component
type Unit struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	TechnicalName string    `json:"technical_name,omitempty"`
	Kind          UnitKind  `json:"kind"`
	Active        bool      `json:"active"`
	TagIDs        []int64   `json:"tag_ids,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Version is a specific release of a unit
type Version struct {
	ID              int64      `json:"id"`
	UnitID          int64      `json:"unit_id"`
	Version         string     `json:"version"`
	State           State      `json:"state"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	// UnitKind mirrors the owning unit's kind; it is filled on read.
	UnitKind  UnitKind  `json:"unit_kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks required fields and fills defaults for a new unit
func (u *Unit) Validate() error {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return fmt.Errorf("%w: unit name is required", ErrInvalid)
	}
	if !u.Kind.Valid() {
		return fmt.Errorf("%w: unit kind %q must be one of configuration, extension, library", ErrInvalid, u.Kind)
	}
	return nil
}

// Validate checks required fields and fills defaults for a new version
func (v *Version) Validate() error {
	if v.UnitID == 0 {
		return fmt.Errorf("%w: unit id is required", ErrInvalid)
	}
	v.Version = strings.TrimSpace(v.Version)
	if v.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalid)
	}
	if v.State == "" {
		v.State = StateDevelopment
	}
	if !v.State.Valid() {
		return fmt.Errorf("%w: state %q must be one of development, published, unsupported", ErrInvalid, v.State)
	}
	return nil
}

// Validate checks required fields for a new tag
func (t *Tag) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return fmt.Errorf("%w: tag name is required", ErrInvalid)
	}
	if t.Color < 0 {
		return fmt.Errorf("%w: tag color must not be negative", ErrInvalid)
	}
	return nil
}

// NotFound wraps ErrNotFound with the kind and id of the missing record
func NotFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}
