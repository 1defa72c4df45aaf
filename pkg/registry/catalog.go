package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/versioning"
)

// CreateUnit validates and stores a new unit
func (r *Registry) CreateUnit(ctx context.Context, unit *catalog.Unit) error {
	if err := unit.Validate(); err != nil {
		return err
	}
	return r.store.CreateUnit(ctx, unit)
}

// GetUnit returns a unit by id
func (r *Registry) GetUnit(ctx context.Context, id int64) (*catalog.Unit, error) {
	return r.store.GetUnit(ctx, id)
}

// ListUnits returns every unit
func (r *Registry) ListUnits(ctx context.Context) ([]*catalog.Unit, error) {
	return r.store.ListUnits(ctx)
}

// UpdateUnit validates and replaces a unit's fields
func (r *Registry) UpdateUnit(ctx context.Context, unit *catalog.Unit) error {
	if err := unit.Validate(); err != nil {
		return err
	}
	return r.store.UpdateUnit(ctx, unit)
}

// DeleteUnit deletes a unit with its versions and their includes
func (r *Registry) DeleteUnit(ctx context.Context, id int64) error {
	if err := r.store.DeleteUnit(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	r.log(ctx).WithField("unit_id", id).Info("Unit deleted")
	return nil
}

// CreateTag validates and stores a new tag
func (r *Registry) CreateTag(ctx context.Context, tag *catalog.Tag) error {
	if err := tag.Validate(); err != nil {
		return err
	}
	return r.store.CreateTag(ctx, tag)
}

// ListTags returns every tag
func (r *Registry) ListTags(ctx context.Context) ([]*catalog.Tag, error) {
	return r.store.ListTags(ctx)
}

// CreateVersion validates and stores a new version. The graph gains a node
// without edges, so cached closures stay valid.
func (r *Registry) CreateVersion(ctx context.Context, version *catalog.Version) error {
	if err := version.Validate(); err != nil {
		return err
	}
	if _, ok := versioning.Parse(version.Version); !ok {
		// Allowed, but it will never be compatible with anything.
		r.log(ctx).WithField("version", version.Version).Warn("Version string is not parsable")
	}
	return r.store.CreateVersion(ctx, version)
}

// GetVersion returns a version by id
func (r *Registry) GetVersion(ctx context.Context, id int64) (*catalog.Version, error) {
	return r.store.GetVersion(ctx, id)
}

// ListVersions returns a unit's versions newest first. A non-empty semver
// constraint such as "~1.2" filters them; unparsable versions never match.
func (r *Registry) ListVersions(ctx context.Context, unitID int64, constraint string) ([]*catalog.Version, error) {
	versions, err := r.store.ListVersions(ctx, unitID)
	if err != nil || constraint == "" {
		return versions, err
	}

	matched := make([]*catalog.Version, 0, len(versions))
	for _, v := range versions {
		ok, err := versioning.MatchConstraint(v.Version, constraint)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", catalog.ErrInvalid, err)
		}
		if ok {
			matched = append(matched, v)
		}
	}
	return matched, nil
}

// SetVersionState changes a version's lifecycle state. Publishing without a
// date stamps the current time.
func (r *Registry) SetVersionState(ctx context.Context, id int64, state catalog.State, published *time.Time) error {
	if !state.Valid() {
		return fmt.Errorf("%w: state %q must be one of development, published, unsupported", catalog.ErrInvalid, state)
	}
	if state == catalog.StatePublished && published == nil {
		now := r.now().UTC()
		published = &now
	}
	return r.store.SetVersionState(ctx, id, state, published)
}

// DeleteVersion deletes a version and every includes edge touching it
func (r *Registry) DeleteVersion(ctx context.Context, id int64) error {
	if err := r.store.DeleteVersion(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	r.log(ctx).WithField("version_id", id).Info("Version deleted")
	return nil
}

// resolve loads the versions for ids, keeping their order
func (r *Registry) resolve(ctx context.Context, ids []int64) ([]*catalog.Version, error) {
	versions := make([]*catalog.Version, 0, len(ids))
	for _, id := range ids {
		v, err := r.store.GetVersion(ctx, id)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}
