package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/dependencies"
)

// Target is the part of the registry an import writes through
type Target interface {
	ListTags(ctx context.Context) ([]*catalog.Tag, error)
	CreateTag(ctx context.Context, tag *catalog.Tag) error
	ListUnits(ctx context.Context) ([]*catalog.Unit, error)
	CreateUnit(ctx context.Context, unit *catalog.Unit) error
	ListVersions(ctx context.Context, unitID int64, constraint string) ([]*catalog.Version, error)
	CreateVersion(ctx context.Context, version *catalog.Version) error
	AddInclude(ctx context.Context, parent, child int64) error
}

// Result counts what an import created
type Result struct {
	TagsCreated     int
	UnitsCreated    int
	VersionsCreated int
	IncludesAdded   int
	Rejected        []Rejection
}

// Import creates whatever the seed declares and the target lacks, matching
// tags and units by name and versions by string, then adds the includes one
// by one. Rejected includes are collected and the import goes on; any other
// error stops it. Importing the same file twice changes nothing.
func Import(ctx context.Context, target Target, f *File, logger logrus.FieldLogger) (*Result, error) {
	res := &Result{}

	tagIDs, err := importTags(ctx, target, f, res)
	if err != nil {
		return res, err
	}
	versionIDs, err := importUnits(ctx, target, f, tagIDs, res)
	if err != nil {
		return res, err
	}

	for _, inc := range f.Includes {
		err := target.AddInclude(ctx, versionIDs[inc.From], versionIDs[inc.To])
		var verr *dependencies.ValidationError
		switch {
		case err == nil:
			res.IncludesAdded++
		case errors.As(err, &verr):
			logger.WithFields(logrus.Fields{
				"from": inc.From.String(),
				"to":   inc.To.String(),
			}).Warn(verr.Error())
			res.Rejected = append(res.Rejected, Rejection{Include: inc, Err: verr})
		default:
			return res, fmt.Errorf("failed to add include %s -> %s: %w", inc.From, inc.To, err)
		}
	}

	logger.WithFields(logrus.Fields{
		"tags":     res.TagsCreated,
		"units":    res.UnitsCreated,
		"versions": res.VersionsCreated,
		"includes": res.IncludesAdded,
		"rejected": len(res.Rejected),
	}).Info("Seed imported")
	return res, nil
}

func importTags(ctx context.Context, target Target, f *File, res *Result) (map[string]int64, error) {
	existing, err := target.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	ids := make(map[string]int64, len(existing))
	for _, t := range existing {
		ids[t.Name] = t.ID
	}

	for _, entry := range f.Tags {
		if _, ok := ids[entry.Name]; ok {
			continue
		}
		tag := &catalog.Tag{Name: entry.Name, Color: entry.Color}
		if err := target.CreateTag(ctx, tag); err != nil {
			return nil, fmt.Errorf("failed to create tag %q: %w", entry.Name, err)
		}
		ids[tag.Name] = tag.ID
		res.TagsCreated++
	}
	return ids, nil
}

func importUnits(ctx context.Context, target Target, f *File, tagIDs map[string]int64, res *Result) (map[Ref]int64, error) {
	existing, err := target.ListUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	units := make(map[string]*catalog.Unit, len(existing))
	for _, u := range existing {
		units[u.Name] = u
	}

	versionIDs := make(map[Ref]int64)
	for _, entry := range f.Units {
		unit, ok := units[entry.Name]
		if !ok {
			unit = &catalog.Unit{
				Name:          entry.Name,
				TechnicalName: entry.TechnicalName,
				Kind:          catalog.UnitKind(entry.Kind),
				Active:        entry.Active == nil || *entry.Active,
			}
			for _, name := range entry.Tags {
				unit.TagIDs = append(unit.TagIDs, tagIDs[name])
			}
			if err := target.CreateUnit(ctx, unit); err != nil {
				return nil, fmt.Errorf("failed to create unit %q: %w", entry.Name, err)
			}
			res.UnitsCreated++
		}

		versions, err := target.ListVersions(ctx, unit.ID, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list versions of %q: %w", entry.Name, err)
		}
		for _, v := range versions {
			versionIDs[Ref{Unit: entry.Name, Version: v.Version}] = v.ID
		}

		for _, raw := range entry.Versions {
			ref := Ref{Unit: entry.Name, Version: raw}
			if _, ok := versionIDs[ref]; ok {
				continue
			}
			v := &catalog.Version{UnitID: unit.ID, Version: raw}
			if err := target.CreateVersion(ctx, v); err != nil {
				return nil, fmt.Errorf("failed to create version %s: %w", ref, err)
			}
			versionIDs[ref] = v.ID
			res.VersionsCreated++
		}
	}
	return versionIDs, nil
}
