// Package storetest is a behavioural test suite shared by every storage.Store
// backend.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/dependencies"
	"github.com/platinummonkey/unitgraph/pkg/storage"
)

// Factory returns a fresh, empty store for one test
type Factory func(t *testing.T) storage.Store

// Run runs the suite against stores built by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("UnitLifecycle", func(t *testing.T) { testUnitLifecycle(t, newStore(t)) })
	t.Run("Tags", func(t *testing.T) { testTags(t, newStore(t)) })
	t.Run("Versions", func(t *testing.T) { testVersions(t, newStore(t)) })
	t.Run("UpdateIncludes", func(t *testing.T) { testUpdateIncludes(t, newStore(t)) })
	t.Run("UpdateIncludesAbort", func(t *testing.T) { testUpdateIncludesAbort(t, newStore(t)) })
	t.Run("CascadeDeletes", func(t *testing.T) { testCascadeDeletes(t, newStore(t)) })
	t.Run("SerializedUnitsOfWork", func(t *testing.T) { testSerializedUnitsOfWork(t, newStore(t)) })
}

// MustUnit creates a unit and fails the test on error
func MustUnit(t *testing.T, s storage.Store, name string, kind catalog.UnitKind) *catalog.Unit {
	t.Helper()
	u := &catalog.Unit{Name: name, Kind: kind, Active: true}
	require.NoError(t, s.CreateUnit(context.Background(), u))
	return u
}

// MustVersion creates a version and fails the test on error
func MustVersion(t *testing.T, s storage.Store, unitID int64, version string) *catalog.Version {
	t.Helper()
	v := &catalog.Version{UnitID: unitID, Version: version}
	require.NoError(t, s.CreateVersion(context.Background(), v))
	return v
}

func addEdges(ctx context.Context, s storage.Store, edges ...dependencies.Edge) error {
	return s.UpdateIncludes(ctx, func(dependencies.Snapshot) (dependencies.Mutation, error) {
		return dependencies.Mutation{Add: edges}, nil
	})
}

func testUnitLifecycle(t *testing.T, s storage.Store) {
	ctx := context.Background()

	unit := &catalog.Unit{Name: "Trade", TechnicalName: "trade", Kind: catalog.KindConfiguration, Active: true}
	require.NoError(t, s.CreateUnit(ctx, unit))
	assert.NotZero(t, unit.ID)
	assert.False(t, unit.CreatedAt.IsZero())

	got, err := s.GetUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trade", got.Name)
	assert.Equal(t, "trade", got.TechnicalName)
	assert.Equal(t, catalog.KindConfiguration, got.Kind)
	assert.True(t, got.Active)

	got.Name = "Trade Core"
	got.Active = false
	require.NoError(t, s.UpdateUnit(ctx, got))
	got, err = s.GetUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trade Core", got.Name)
	assert.False(t, got.Active)

	MustUnit(t, s, "BSP", catalog.KindLibrary)
	units, err := s.ListUnits(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 2)

	assert.ErrorIs(t, s.CreateUnit(ctx, &catalog.Unit{Name: "x"}), catalog.ErrInvalid)
	_, err = s.GetUnit(ctx, 9999)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.ErrorIs(t, s.UpdateUnit(ctx, &catalog.Unit{ID: 9999, Name: "x", Kind: catalog.KindLibrary}), catalog.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUnit(ctx, 9999), catalog.ErrNotFound)
}

func testTags(t *testing.T, s storage.Store) {
	ctx := context.Background()

	erp := &catalog.Tag{Name: "erp", Color: 3}
	require.NoError(t, s.CreateTag(ctx, erp))
	require.NoError(t, s.CreateTag(ctx, &catalog.Tag{Name: "core"}))
	assert.ErrorIs(t, s.CreateTag(ctx, &catalog.Tag{Name: "erp"}), catalog.ErrDuplicate)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "core", tags[0].Name)
	assert.Equal(t, 3, tags[1].Color)

	unit := &catalog.Unit{Name: "Trade", Kind: catalog.KindConfiguration, TagIDs: []int64{erp.ID}}
	require.NoError(t, s.CreateUnit(ctx, unit))
	got, err := s.GetUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{erp.ID}, got.TagIDs)

	bad := &catalog.Unit{Name: "Other", Kind: catalog.KindLibrary, TagIDs: []int64{424242}}
	assert.ErrorIs(t, s.CreateUnit(ctx, bad), catalog.ErrInvalid)
}

func testVersions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	unit := MustUnit(t, s, "BSP", catalog.KindLibrary)

	for _, raw := range []string{"1.1.1.1", "1.10.0", "1.2.0.1", "dev"} {
		MustVersion(t, s, unit.ID, raw)
	}
	dup := &catalog.Version{UnitID: unit.ID, Version: "1.1.1.1"}
	assert.ErrorIs(t, s.CreateVersion(ctx, dup), catalog.ErrDuplicate)
	assert.ErrorIs(t, s.CreateVersion(ctx, &catalog.Version{UnitID: 9999, Version: "1"}), catalog.ErrNotFound)

	versions, err := s.ListVersions(ctx, unit.ID)
	require.NoError(t, err)
	raws := make([]string, len(versions))
	for i, v := range versions {
		raws[i] = v.Version
		assert.Equal(t, catalog.KindLibrary, v.UnitKind)
		assert.Equal(t, catalog.StateDevelopment, v.State)
	}
	assert.Equal(t, []string{"1.10.0", "1.2.0.1", "1.1.1.1", "dev"}, raws)

	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetVersionState(ctx, versions[0].ID, catalog.StatePublished, &published))
	got, err := s.GetVersion(ctx, versions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatePublished, got.State)
	require.NotNil(t, got.PublicationDate)
	assert.True(t, published.Equal(*got.PublicationDate))

	assert.ErrorIs(t, s.SetVersionState(ctx, got.ID, "archived", nil), catalog.ErrInvalid)
	assert.ErrorIs(t, s.SetVersionState(ctx, 9999, catalog.StatePublished, nil), catalog.ErrNotFound)
	_, err = s.GetVersion(ctx, 9999)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func testUpdateIncludes(t *testing.T, s storage.Store) {
	ctx := context.Background()
	trade := MustUnit(t, s, "Trade", catalog.KindConfiguration)
	bsp := MustUnit(t, s, "BSP", catalog.KindLibrary)
	tv := MustVersion(t, s, trade.ID, "11.5.4.112")
	b1 := MustVersion(t, s, bsp.ID, "1.1.1.1")
	b2 := MustVersion(t, s, bsp.ID, "1.1.1.2")

	require.NoError(t, addEdges(ctx, s, dependencies.Edge{From: tv.ID, To: b1.ID}))

	var seen dependencies.Snapshot
	err := s.UpdateIncludes(ctx, func(snap dependencies.Snapshot) (dependencies.Mutation, error) {
		seen = snap
		return dependencies.Mutation{
			Remove: []dependencies.Edge{{From: tv.ID, To: b1.ID}},
			Add:    []dependencies.Edge{{From: tv.ID, To: b2.ID}},
		}, nil
	})
	require.NoError(t, err)
	assert.Len(t, seen.Nodes, 3)
	assert.Equal(t, []dependencies.Edge{{From: tv.ID, To: b1.ID}}, seen.Edges)
	for _, n := range seen.Nodes {
		if n.ID == b1.ID {
			assert.Equal(t, "BSP", n.UnitName)
			assert.Equal(t, bsp.ID, n.UnitID)
			assert.Equal(t, "1.1.1.1", n.Version)
		}
	}

	snap, err := s.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, []dependencies.Edge{{From: tv.ID, To: b2.ID}}, snap.Edges)

	// Adding an existing edge again is a no-op.
	require.NoError(t, addEdges(ctx, s, dependencies.Edge{From: tv.ID, To: b2.ID}))
	snap, err = s.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Edges, 1)

	err = addEdges(ctx, s, dependencies.Edge{From: tv.ID, To: 9999})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func testUpdateIncludesAbort(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := MustUnit(t, s, "A", catalog.KindLibrary)
	b := MustUnit(t, s, "B", catalog.KindLibrary)
	av := MustVersion(t, s, a.ID, "1")
	bv := MustVersion(t, s, b.ID, "1")

	boom := errors.New("rejected")
	err := s.UpdateIncludes(ctx, func(dependencies.Snapshot) (dependencies.Mutation, error) {
		return dependencies.Mutation{Add: []dependencies.Edge{{From: av.ID, To: bv.ID}}}, boom
	})
	assert.ErrorIs(t, err, boom)

	snap, err := s.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Edges)
}

func testCascadeDeletes(t *testing.T, s storage.Store) {
	ctx := context.Background()
	trade := MustUnit(t, s, "Trade", catalog.KindConfiguration)
	wh := MustUnit(t, s, "Warehouse", catalog.KindExtension)
	bsp := MustUnit(t, s, "BSP", catalog.KindLibrary)
	tv := MustVersion(t, s, trade.ID, "1.0")
	wv := MustVersion(t, s, wh.ID, "2.0")
	bv := MustVersion(t, s, bsp.ID, "1.1.1.1")
	require.NoError(t, addEdges(ctx, s,
		dependencies.Edge{From: tv.ID, To: wv.ID},
		dependencies.Edge{From: wv.ID, To: bv.ID},
		dependencies.Edge{From: tv.ID, To: bv.ID},
	))

	require.NoError(t, s.DeleteVersion(ctx, wv.ID))
	snap, err := s.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, []dependencies.Edge{{From: tv.ID, To: bv.ID}}, snap.Edges)
	assert.ErrorIs(t, s.DeleteVersion(ctx, wv.ID), catalog.ErrNotFound)

	require.NoError(t, s.DeleteUnit(ctx, bsp.ID))
	snap, err = s.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Edges)
	assert.Len(t, snap.Nodes, 1)
	_, err = s.GetVersion(ctx, bv.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func testSerializedUnitsOfWork(t *testing.T, s storage.Store) {
	ctx := context.Background()
	root := MustUnit(t, s, "Root", catalog.KindConfiguration)
	rv := MustVersion(t, s, root.ID, "1.0")

	const workers = 8
	children := make([]int64, workers)
	for i := range children {
		u := MustUnit(t, s, "Child"+string(rune('A'+i)), catalog.KindLibrary)
		children[i] = MustVersion(t, s, u.ID, "1.0").ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(child int64) {
			defer wg.Done()
			errs <- s.UpdateIncludes(ctx, func(snap dependencies.Snapshot) (dependencies.Mutation, error) {
				// Every callback must see the edges committed before it.
				return dependencies.Mutation{Add: append(snap.Edges, dependencies.Edge{From: rv.ID, To: child})}, nil
			})
		}(children[i])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	snap, err := s.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Edges, workers)
}
