package merge

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/caravel-design/docengine/internal/diffop"
	"github.com/caravel-design/docengine/internal/docerr"
	"github.com/caravel-design/docengine/internal/docmodel"
)

var defaultTracer = otel.Tracer("github.com/caravel-design/docengine/internal/merge")

// Options configures one Merge call. Zero-value Options is not directly
// usable — callers should start from DefaultOptions().
type Options struct {
	// Strategies overrides the default strategy per conflict code (see
	// DefaultStrategies). A code absent from the map, and absent from the
	// defaults, resolves to Manual.
	Strategies map[ConflictCode]Strategy

	// MinAutoResolveConfidence is the confidence floor a conflict must meet
	// (on top of being AutoResolvable and not Manual-strategy) to be
	// resolved automatically, per spec §4.5.3.
	MinAutoResolveConfidence float64

	// ManualReviewTarget is the branch (PreferLocal or PreferRemote) whose
	// value a Manual-strategy, or below-threshold, conflict keeps in the
	// best-effort resolved document.
	ManualReviewTarget Strategy

	// FailOnUnresolved makes Success false whenever any conflict remains
	// unresolved after the auto-resolve pass, per spec §4.5.4.
	FailOnUnresolved bool

	// YieldEvery is how many internal visits buildResolvedDocument makes
	// between cooperative context.Context cancellation checks (spec §5).
	YieldEvery int

	// DiffOptions is passed through to the underlying diffop.Diff calls.
	DiffOptions diffop.Options

	// Tracer wraps Merge in a span. Nil uses the global otel tracer
	// provider, a no-op until the host application configures one.
	Tracer trace.Tracer
}

func DefaultOptions() Options {
	return Options{
		Strategies:               DefaultStrategies(),
		MinAutoResolveConfidence: 0.7,
		ManualReviewTarget:       PreferLocal,
		YieldEvery:               1000,
		DiffOptions:              diffop.DefaultOptions(),
	}
}

// Merge computes a three-way merge of local and remote against their common
// ancestor base, per spec §4.5. It never mutates base, local, or remote.
func Merge(ctx context.Context, base, local, remote *docmodel.Document, opts Options) (result *ResolutionResult, merr *docerr.MergeError) {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = defaultTracer
	}
	ctx, span := tracer.Start(ctx, "merge.Merge")
	defer func() {
		if merr != nil {
			span.SetStatus(codes.Error, merr.Error())
			span.RecordError(merr)
		} else if result != nil {
			span.SetAttributes(
				attribute.Int("docengine.unresolved_conflicts", len(result.UnresolvedConflicts)),
				attribute.Bool("docengine.needs_manual_review", result.NeedsManualReview),
			)
		}
		span.End()
	}()

	if base == nil || local == nil || remote == nil {
		return nil, docerr.NewMergeError(docerr.MergeInvalidInput, "", "base, local, and remote must all be non-nil")
	}
	if local.SchemaVersion != base.SchemaVersion || remote.SchemaVersion != base.SchemaVersion {
		return nil, docerr.NewMergeError(docerr.MergeInvalidInput, "", "schema version mismatch across base, local, and remote")
	}
	for name, d := range map[string]*docmodel.Document{"base": base, "local": local, "remote": remote} {
		if errs := docmodel.Validate(d); len(errs) > 0 {
			return nil, docerr.NewMergeError(docerr.MergeInvalidInput, name, errs[0].Error())
		}
	}

	select {
	case <-ctx.Done():
		return nil, docerr.NewMergeError(docerr.MergeCancelled, "", ctx.Err().Error())
	default:
	}

	diffOpts := opts.DiffOptions
	deltaLocal := diffop.Diff(base, local, diffOpts)
	deltaRemote := diffop.Diff(base, remote, diffOpts)

	conflicts := detect(base, local, remote, deltaLocal, deltaRemote)

	strategies := opts.Strategies
	if strategies == nil {
		strategies = DefaultStrategies()
	}
	minConfidence := opts.MinAutoResolveConfidence
	if minConfidence == 0 {
		minConfidence = 0.7
	}
	manualTarget := opts.ManualReviewTarget
	if manualTarget == "" {
		manualTarget = PreferLocal
	}
	yieldEvery := opts.YieldEvery
	if yieldEvery <= 0 {
		yieldEvery = 1000
	}

	var applied, allResolutions []Resolution
	var unresolved []Conflict
	for _, c := range conflicts {
		strategy := strategyFor(c.Code, strategies)
		if canAutoResolve(c, strategy, minConfidence) {
			r := resolve(c, strategy, manualTarget)
			applied = append(applied, r)
			allResolutions = append(allResolutions, r)
		} else {
			unresolved = append(unresolved, c)
			allResolutions = append(allResolutions, resolve(c, Manual, manualTarget))
		}
	}

	resolved, merr := buildResolvedDocument(ctx, base, local, remote, deltaLocal, deltaRemote, conflicts, allResolutions, manualTarget, yieldEvery)
	if merr != nil {
		return nil, merr
	}

	confidence := 1.0
	if len(conflicts) > 0 {
		if len(applied) == 0 {
			confidence = 0
		} else {
			sum := 0.0
			for _, r := range applied {
				sum += r.Confidence
			}
			confidence = sum / float64(len(applied))
		}
	}

	result = &ResolutionResult{
		ResolvedDocument:    resolved,
		AppliedResolutions:  applied,
		UnresolvedConflicts: unresolved,
		Confidence:          confidence,
		NeedsManualReview:   len(unresolved) > 0,
		Success:             !(opts.FailOnUnresolved && len(unresolved) > 0),
	}
	return result, nil
}
