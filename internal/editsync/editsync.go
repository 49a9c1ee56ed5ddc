// Package editsync reconciles interactive field edits against the
// canonical Dimension records and schedules the recomputation each edit
// requires. It is the single write authority per Dimension.
package editsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/heavyclick/autoballoon-sub001/internal/dimension"
	"github.com/heavyclick/autoballoon-sub001/internal/sampling"
	"github.com/heavyclick/autoballoon-sub001/internal/tolerance"
)

// Field paths accepted by the edit boundary. Paths under parsed. are
// nested merges preserving sibling fields; root paths are replacements.
// Every field is declared here: there is no get-or-undefined fallback.
var (
	rootFields = map[string]bool{
		"chart_char_id": true,
		"sheet":         true,
		"view_name":     true,
		"value":         true,
	}
	parsedFields = map[string]bool{
		"subtype":            true,
		"operation":          true,
		"full_specification": true,
		"units":              true,
		"tolerance_type":     true,
		"plus_tolerance":     true,
		"minus_tolerance":    true,
		"hole_fit_class":     true,
		"shaft_fit_class":    true,
		"max_limit":          true,
		"min_limit":          true,
		"inspection_method":  true,
		"lot_size":           true,
		"aql":                true,
		"inspection_level":   true,
	}

	// Fields whose change invalidates the resolved limits.
	toleranceAffecting = map[string]bool{
		"value":                  true,
		"parsed.tolerance_type":  true,
		"parsed.plus_tolerance":  true,
		"parsed.minus_tolerance": true,
		"parsed.hole_fit_class":  true,
		"parsed.shaft_fit_class": true,
		"parsed.max_limit":       true,
		"parsed.min_limit":       true,
	}
	// Fields whose change invalidates the sampling plan.
	samplingAffecting = map[string]bool{
		"parsed.lot_size":         true,
		"parsed.aql":              true,
		"parsed.inspection_level": true,
	}
)

type recomputeKind struct {
	tolerance bool
	sampling  bool
}

// entry tracks one Dimension's debounce state. The generation counter
// increments on every affecting edit; a recomputation result is applied
// only while its generation is still current.
type entry struct {
	generation uint64
	pending    recomputeKind
	timer      *time.Timer
	cancel     context.CancelFunc
}

// Scheduler applies edits and drives debounced recomputation. Resources
// are scoped to a single Dimension id, so concurrent edits to different
// Dimensions never contend beyond the entry map lock.
type Scheduler struct {
	store    *dimension.Store
	planner  sampling.Planner
	debounce time.Duration
	logger   *slog.Logger

	ctx context.Context

	mu      sync.Mutex
	entries map[int]*entry
}

// Config configures a Scheduler.
type Config struct {
	// Debounce is the coalescing window for rapid consecutive edits.
	Debounce time.Duration
	// Planner computes sampling plans; defaults to the built-in tables.
	Planner sampling.Planner
	Logger  *slog.Logger
}

// NewScheduler creates a Scheduler bound to one drawing's store. ctx
// bounds all background recomputation.
func NewScheduler(ctx context.Context, store *dimension.Store, cfg Config) *Scheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Planner == nil {
		cfg.Planner = sampling.TablePlanner{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		store:    store,
		planner:  cfg.Planner,
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
		ctx:      ctx,
		entries:  make(map[int]*entry),
	}
}

// Apply merges a single field edit into the Dimension and schedules any
// recomputation the edit requires. The merge itself is immediate; only
// the derived-value recomputation is debounced. Returns the updated
// record (derived fields may still be pending).
func (s *Scheduler) Apply(id int, path string, value any) (dimension.Dimension, error) {
	if err := validatePath(path); err != nil {
		return dimension.Dimension{}, err
	}

	var changed bool
	err := s.store.Mutate(id, func(d *dimension.Dimension) error {
		var merr error
		changed, merr = mergeField(d, path, value)
		return merr
	})
	if err != nil {
		return dimension.Dimension{}, err
	}

	kind := recomputeKind{
		tolerance: toleranceAffecting[path],
		sampling:  samplingAffecting[path],
	}
	// An edit that leaves the field as it was schedules nothing.
	if changed && (kind.tolerance || kind.sampling) {
		s.schedule(id, kind)
	}

	updated, _ := s.store.Get(id)
	return updated, nil
}

// validatePath rejects paths outside the declared field schema. The id
// is immutable after creation and derived sample_size is never
// hand-edited.
func validatePath(path string) error {
	if rootFields[path] {
		return nil
	}
	if rest, ok := strings.CutPrefix(path, "parsed."); ok && parsedFields[rest] {
		return nil
	}
	return fmt.Errorf("field path %q is not editable", path)
}

// mergeField applies the edit via a JSON round-trip: sjson addresses the
// nested path, and unmarshalling back into the struct rejects values of
// the wrong shape. Reports whether the field actually changed.
func mergeField(d *dimension.Dimension, path string, value any) (bool, error) {
	doc, err := json.Marshal(d)
	if err != nil {
		return false, fmt.Errorf("failed to serialize dimension: %w", err)
	}
	merged, err := sjson.SetBytes(doc, path, value)
	if err != nil {
		return false, fmt.Errorf("failed to merge %s: %w", path, err)
	}

	var next dimension.Dimension
	if err := json.Unmarshal(merged, &next); err != nil {
		return false, fmt.Errorf("edit to %s has incompatible value: %w", path, err)
	}
	if next.ID != d.ID {
		return false, fmt.Errorf("dimension id is immutable")
	}
	if path == "parsed.tolerance_type" && !next.Parsed.ToleranceType.Valid() {
		return false, fmt.Errorf("unknown tolerance type %q", next.Parsed.ToleranceType)
	}

	changed := gjson.GetBytes(doc, path).Raw != gjson.GetBytes(merged, path).Raw
	*d = next
	return changed, nil
}

// schedule bumps the Dimension's edit generation and (re)arms its
// debounce timer. An in-flight recomputation for an older generation is
// cancelled; last edit wins.
func (s *Scheduler) schedule(id int, kind recomputeKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		e = &entry{}
		s.entries[id] = e
	}

	e.generation++
	e.pending.tolerance = e.pending.tolerance || kind.tolerance
	e.pending.sampling = e.pending.sampling || kind.sampling

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.timer != nil {
		e.timer.Stop()
	}

	gen := e.generation
	e.timer = time.AfterFunc(s.debounce, func() {
		s.fire(id, gen)
	})
}

// fire runs the recomputation for a generation if it is still current.
func (s *Scheduler) fire(id int, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || e.generation != gen {
		s.mu.Unlock()
		return
	}
	// Pending kinds are left in place until the result is applied so a
	// superseding edit's timer recomputes the full union.
	kind := e.pending
	ctx, cancel := context.WithCancel(s.ctx)
	e.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	snapshot, ok := s.store.Get(id)
	if !ok {
		return // deleted while debouncing
	}

	limits, limitIssue := s.computeLimits(&snapshot, kind)
	plan, planIssue := s.computePlan(ctx, &snapshot, kind)

	if ctx.Err() != nil {
		return // cancelled by a newer edit
	}

	// Apply only while the generation is still current; a stale result
	// must never overwrite newer field state. The entry lock is held
	// across the store mutation so no newer edit can slip between the
	// generation check and the write.
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[id]; !ok || cur.generation != gen {
		s.logger.Debug("stale recomputation discarded", "dimension", id, "generation", gen)
		return
	}
	e.pending = recomputeKind{}

	err := s.store.Mutate(id, func(d *dimension.Dimension) error {
		if kind.tolerance {
			d.ClearIssues(dimension.IssueTolerance)
			d.Parsed.MaxLimit = limits.Max
			d.Parsed.MinLimit = limits.Min
			if limits.Warning != "" {
				d.Flag(dimension.IssueTolerance, limits.Warning)
			}
			if limitIssue != "" {
				d.Flag(dimension.IssueTolerance, limitIssue)
			}
		}
		if kind.sampling {
			d.ClearIssues(dimension.IssueSampling)
			if plan != nil {
				size := plan.SampleSize
				d.Parsed.SampleSize = &size
			} else {
				d.Parsed.SampleSize = nil
			}
			if planIssue != "" {
				d.Flag(dimension.IssueSampling, planIssue)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to apply recomputation", "dimension", id, "error", err)
	}
}

// computeLimits resolves tolerance limits from the snapshot. Failures
// are field-scoped: the limits stay undefined and the dimension is
// flagged, never discarded.
func (s *Scheduler) computeLimits(d *dimension.Dimension, kind recomputeKind) (tolerance.Limits, string) {
	if !kind.tolerance {
		return tolerance.Limits{}, ""
	}
	nominal, err := d.Nominal()
	if err != nil {
		return tolerance.Limits{}, err.Error()
	}
	tol, err := d.Parsed.Tolerance()
	if err != nil {
		return tolerance.Limits{}, err.Error()
	}
	limits, err := tolerance.Resolve(nominal, tol)
	if err != nil {
		return tolerance.Limits{}, err.Error()
	}
	return limits, ""
}

// computePlan recomputes the sampling plan when every input is present.
// Missing inputs clear the derived sample size (not yet computed, which
// is distinct from zero).
func (s *Scheduler) computePlan(ctx context.Context, d *dimension.Dimension, kind recomputeKind) (*sampling.SamplingPlan, string) {
	if !kind.sampling {
		return nil, ""
	}
	ps := d.Parsed
	if ps.LotSize == nil || ps.AQL == nil || ps.InspectionLevel == nil {
		return nil, ""
	}
	plan, err := s.planner.Plan(ctx, *ps.LotSize, *ps.AQL, *ps.InspectionLevel)
	if err != nil {
		return nil, err.Error()
	}
	return &plan, ""
}

// Flush synchronously runs any armed debounce timers. Intended for
// tests and shutdown.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	ids := make(map[int]uint64)
	for id, e := range s.entries {
		if e.timer != nil && e.timer.Stop() {
			ids[id] = e.generation
		}
	}
	s.mu.Unlock()

	for id, gen := range ids {
		s.fire(id, gen)
	}
}

// Forget drops a Dimension's debounce state after deletion.
func (s *Scheduler) Forget(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		if e.cancel != nil {
			e.cancel()
		}
		delete(s.entries, id)
	}
}

// Close stops all timers and cancels in-flight recomputation.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		if e.cancel != nil {
			e.cancel()
		}
	}
	s.entries = make(map[int]*entry)
}
