package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/dependencies"
	"github.com/platinummonkey/unitgraph/pkg/versioning"
)

// MemoryStore implements Store in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	lastID   int64
	units    map[int64]*catalog.Unit
	versions map[int64]*catalog.Version
	tags     map[int64]*catalog.Tag
	edges    []dependencies.Edge
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		units:    make(map[int64]*catalog.Unit),
		versions: make(map[int64]*catalog.Version),
		tags:     make(map[int64]*catalog.Tag),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) nextID() int64 {
	s.lastID++
	return s.lastID
}

// CreateUnit implements UnitWriter.CreateUnit
func (s *MemoryStore) CreateUnit(ctx context.Context, unit *catalog.Unit) error {
	if err := unit.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTags(unit.TagIDs); err != nil {
		return err
	}
	unit.ID = s.nextID()
	unit.CreatedAt = s.now()
	unit.UpdatedAt = unit.CreatedAt
	s.units[unit.ID] = copyUnit(unit)
	return nil
}

// GetUnit implements UnitReader.GetUnit
func (s *MemoryStore) GetUnit(ctx context.Context, id int64) (*catalog.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, ok := s.units[id]
	if !ok {
		return nil, catalog.NotFound("unit", id)
	}
	return copyUnit(unit), nil
}

// ListUnits implements UnitReader.ListUnits
func (s *MemoryStore) ListUnits(ctx context.Context) ([]*catalog.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	units := make([]*catalog.Unit, 0, len(s.units))
	for _, u := range s.units {
		units = append(units, copyUnit(u))
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units, nil
}

// UpdateUnit implements UnitWriter.UpdateUnit
func (s *MemoryStore) UpdateUnit(ctx context.Context, unit *catalog.Unit) error {
	if err := unit.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.units[unit.ID]
	if !ok {
		return catalog.NotFound("unit", unit.ID)
	}
	if err := s.checkTags(unit.TagIDs); err != nil {
		return err
	}
	unit.CreatedAt = existing.CreatedAt
	unit.UpdatedAt = s.now()
	s.units[unit.ID] = copyUnit(unit)
	return nil
}

// DeleteUnit implements UnitWriter.DeleteUnit
func (s *MemoryStore) DeleteUnit(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[id]; !ok {
		return catalog.NotFound("unit", id)
	}
	for vid, v := range s.versions {
		if v.UnitID == id {
			s.deleteVersionLocked(vid)
		}
	}
	delete(s.units, id)
	return nil
}

// CreateTag implements TagStore.CreateTag
func (s *MemoryStore) CreateTag(ctx context.Context, tag *catalog.Tag) error {
	if err := tag.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tags {
		if t.Name == tag.Name {
			return fmt.Errorf("tag %q: %w", tag.Name, catalog.ErrDuplicate)
		}
	}
	tag.ID = s.nextID()
	cp := *tag
	s.tags[tag.ID] = &cp
	return nil
}

// ListTags implements TagStore.ListTags
func (s *MemoryStore) ListTags(ctx context.Context) ([]*catalog.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make([]*catalog.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		cp := *t
		tags = append(tags, &cp)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// CreateVersion implements VersionWriter.CreateVersion
func (s *MemoryStore) CreateVersion(ctx context.Context, version *catalog.Version) error {
	if err := version.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	unit, ok := s.units[version.UnitID]
	if !ok {
		return catalog.NotFound("unit", version.UnitID)
	}
	for _, v := range s.versions {
		if v.UnitID == version.UnitID && v.Version == version.Version {
			return fmt.Errorf("version %q of unit %d: %w", version.Version, version.UnitID, catalog.ErrDuplicate)
		}
	}
	version.ID = s.nextID()
	version.UnitKind = unit.Kind
	version.CreatedAt = s.now()
	version.UpdatedAt = version.CreatedAt
	cp := *version
	s.versions[version.ID] = &cp
	return nil
}

// GetVersion implements VersionReader.GetVersion
func (s *MemoryStore) GetVersion(ctx context.Context, id int64) (*catalog.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[id]
	if !ok {
		return nil, catalog.NotFound("version", id)
	}
	return s.readVersion(v), nil
}

// ListVersions implements VersionReader.ListVersions
func (s *MemoryStore) ListVersions(ctx context.Context, unitID int64) ([]*catalog.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.units[unitID]; !ok {
		return nil, catalog.NotFound("unit", unitID)
	}
	var versions []*catalog.Version
	for _, v := range s.versions {
		if v.UnitID == unitID {
			versions = append(versions, s.readVersion(v))
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versioning.Newer(versions[i].Version, versions[j].Version)
	})
	return versions, nil
}

// SetVersionState implements VersionWriter.SetVersionState
func (s *MemoryStore) SetVersionState(ctx context.Context, id int64, state catalog.State, published *time.Time) error {
	if !state.Valid() {
		return fmt.Errorf("%w: state %q", catalog.ErrInvalid, state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[id]
	if !ok {
		return catalog.NotFound("version", id)
	}
	v.State = state
	if published != nil {
		p := *published
		v.PublicationDate = &p
	}
	v.UpdatedAt = s.now()
	return nil
}

// DeleteVersion implements VersionWriter.DeleteVersion
func (s *MemoryStore) DeleteVersion(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.versions[id]; !ok {
		return catalog.NotFound("version", id)
	}
	s.deleteVersionLocked(id)
	return nil
}

// LoadGraph implements GraphStore.LoadGraph
func (s *MemoryStore) LoadGraph(ctx context.Context) (dependencies.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// UpdateIncludes implements GraphStore.UpdateIncludes
func (s *MemoryStore) UpdateIncludes(ctx context.Context, fn IncludesFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := fn(s.snapshotLocked())
	if err != nil {
		return err
	}
	for _, e := range m.Add {
		if _, ok := s.versions[e.From]; !ok {
			return catalog.NotFound("version", e.From)
		}
		if _, ok := s.versions[e.To]; !ok {
			return catalog.NotFound("version", e.To)
		}
	}

	removed := make(map[dependencies.Edge]bool, len(m.Remove))
	for _, e := range m.Remove {
		removed[e] = true
	}
	kept := s.edges[:0]
	present := make(map[dependencies.Edge]bool, len(s.edges))
	for _, e := range s.edges {
		if !removed[e] {
			kept = append(kept, e)
			present[e] = true
		}
	}
	for _, e := range m.Add {
		if !present[e] {
			kept = append(kept, e)
			present[e] = true
		}
	}
	s.edges = kept
	return nil
}

// HealthCheck implements HealthChecker.HealthCheck
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

// Close implements Store.Close
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) snapshotLocked() dependencies.Snapshot {
	nodes := make([]dependencies.Node, 0, len(s.versions))
	for _, v := range s.versions {
		nodes = append(nodes, dependencies.Node{
			ID:       v.ID,
			UnitID:   v.UnitID,
			UnitName: s.units[v.UnitID].Name,
			Version:  v.Version,
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return dependencies.Snapshot{
		Nodes: nodes,
		Edges: append([]dependencies.Edge(nil), s.edges...),
	}
}

func (s *MemoryStore) deleteVersionLocked(id int64) {
	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.From != id && e.To != id {
			kept = append(kept, e)
		}
	}
	s.edges = kept
	delete(s.versions, id)
}

func (s *MemoryStore) readVersion(v *catalog.Version) *catalog.Version {
	cp := *v
	if v.PublicationDate != nil {
		p := *v.PublicationDate
		cp.PublicationDate = &p
	}
	if u, ok := s.units[v.UnitID]; ok {
		cp.UnitKind = u.Kind
	}
	return &cp
}

func (s *MemoryStore) checkTags(ids []int64) error {
	for _, id := range ids {
		if _, ok := s.tags[id]; !ok {
			return fmt.Errorf("%w: unknown tag %d", catalog.ErrInvalid, id)
		}
	}
	return nil
}

func copyUnit(u *catalog.Unit) *catalog.Unit {
	cp := *u
	cp.TagIDs = append([]int64(nil), u.TagIDs...)
	return &cp
}
