package registry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/unitgraph/pkg/cache"
	"github.com/platinummonkey/unitgraph/pkg/catalog"
	"github.com/platinummonkey/unitgraph/pkg/dependencies"
)

// Dependencies returns every version id reachable from id through includes,
// excluding id itself. With topological set the ids come dependencies-first.
func (r *Registry) Dependencies(ctx context.Context, id int64, topological bool) ([]*catalog.Version, error) {
	kind, walk := cache.KindDependencies, (*dependencies.Graph).AllDependencies
	if topological {
		kind, walk = cache.KindTopological, (*dependencies.Graph).TopologicalOrder
	}
	return r.closure(ctx, kind, id, walk)
}

// Dependents returns every version that reaches id through includes
func (r *Registry) Dependents(ctx context.Context, id int64) ([]*catalog.Version, error) {
	return r.closure(ctx, cache.KindDependents, id, (*dependencies.Graph).AllDependents)
}

// Impact returns the direct and transitive dependents of id
func (r *Registry) Impact(ctx context.Context, id int64) (*dependencies.ImpactAnalysis, error) {
	g, err := r.graph(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireNodes(g, id); err != nil {
		return nil, err
	}
	return g.Impact(id)
}

func (r *Registry) closure(ctx context.Context, kind cache.Kind, id int64, walk func(*dependencies.Graph, int64) ([]int64, error)) ([]*catalog.Version, error) {
	ctx, span := registryTracer.Start(ctx, "Closure", trace.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.Int64("version_id", id),
	))
	defer span.End()

	ids, err := r.closureIDs(ctx, kind, id, walk)
	if err != nil {
		return nil, fail(span, err, "failed to compute closure")
	}
	span.SetAttributes(attribute.Int("closure.size", len(ids)))

	versions, err := r.resolve(ctx, ids)
	if err != nil {
		return nil, fail(span, err, "failed to resolve closure")
	}
	return versions, nil
}

func (r *Registry) closureIDs(ctx context.Context, kind cache.Kind, id int64, walk func(*dependencies.Graph, int64) ([]int64, error)) ([]int64, error) {
	key := cache.Key{Kind: kind, VersionID: id}
	cacheable := false
	var gen int64
	if r.cache != nil {
		ids, err := r.cache.Get(ctx, key)
		switch {
		case err == nil:
			r.observeCache(ctx, kind, true)
			return ids, nil
		case errors.Is(err, cache.ErrCacheMiss):
			r.observeCache(ctx, kind, false)
		default:
			r.log(ctx).WithError(err).Warn("Closure cache lookup failed")
		}

		// The generation is taken before the graph is loaded: an includes
		// mutation committed in between invalidates it and the Set is dropped.
		if gen, err = r.cache.Generation(ctx); err != nil {
			r.log(ctx).WithError(err).Warn("Closure cache generation lookup failed")
		} else {
			cacheable = true
		}
	}

	g, err := r.graph(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireNodes(g, id); err != nil {
		return nil, err
	}
	ids, err := walk(g, id)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}

	if cacheable {
		if err := r.cache.Set(ctx, key, gen, ids); err != nil {
			r.log(ctx).WithError(err).Warn("Failed to cache closure")
		}
	}
	return ids, nil
}

// AuditReport is the outcome of a full-graph audit
type AuditReport struct {
	Versions   int                              `json:"versions"`
	Includes   int                              `json:"includes"`
	Violations []*dependencies.ValidationError `json:"violations"`
	Duration   time.Duration                    `json:"duration_ns"`
}

// Audit re-validates the whole stored graph. Violations can only appear when
// rows were written around the registry.
func (r *Registry) Audit(ctx context.Context) (*AuditReport, error) {
	ctx, span := registryTracer.Start(ctx, "Audit")
	defer span.End()

	start := time.Now()
	g, err := r.graph(ctx)
	if err != nil {
		if r.metrics != nil {
			r.metrics.AuditRunsTotal.WithLabelValues("error").Inc()
		}
		return nil, fail(span, err, "failed to load graph")
	}

	report := &AuditReport{
		Versions:   g.Len(),
		Includes:   g.EdgeCount(),
		Violations: g.Audit(),
		Duration:   time.Since(start),
	}
	if report.Violations == nil {
		report.Violations = []*dependencies.ValidationError{}
	}
	span.SetAttributes(attribute.Int("audit.violations", len(report.Violations)))

	result := "clean"
	if len(report.Violations) > 0 {
		result = "violations"
	}
	if r.metrics != nil {
		r.metrics.AuditRunsTotal.WithLabelValues(result).Inc()
		r.metrics.AuditViolations.Set(float64(len(report.Violations)))
		r.metrics.SetGraphSize(report.Versions, report.Includes)
	}
	if r.otel != nil {
		r.otel.RecordAudit(ctx, len(report.Violations))
	}

	logger := r.log(ctx).WithField("violations", len(report.Violations))
	for _, v := range report.Violations {
		logger.WithField("kind", v.Kind).Warn(v.Error())
	}
	logger.Info("Graph audit complete")
	return report, nil
}
