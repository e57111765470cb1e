// Package decompose turns a problem statement into a validated subtask graph.
package decompose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Konard/problem-solving/internal/generate"
	"github.com/Konard/problem-solving/internal/graph"
	"github.com/Konard/problem-solving/pkg/models"
)

// DroppedDependency records one dependency edge discarded during
// normalization because its target could not be resolved.
type DroppedDependency struct {
	// SubtaskID is the id of the subtask that declared the dependency.
	SubtaskID string
	// Ref is the unresolvable reference exactly as the generator wrote it.
	Ref string
}

// Result is a validated decomposition.
type Result struct {
	// Graph is the built dependency graph.
	Graph *graph.DependencyGraph
	// Subtasks holds the normalized subtasks in declaration order.
	Subtasks []*models.Subtask
	// Dropped lists dependency edges discarded during normalization.
	Dropped []DroppedDependency
}

// Decomposer breaks down a problem statement into dependency-ordered subtasks.
type Decomposer struct {
	gen      generate.Generator
	now      func() time.Time
	debugLog func(format string, args ...interface{})
}

// New creates a new Decomposer backed by the given generator.
func New(gen generate.Generator) *Decomposer {
	return &Decomposer{
		gen:      gen,
		now:      time.Now,
		debugLog: func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetDebugLog sets the debug logging function.
func (d *Decomposer) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		d.debugLog = fn
	}
}

// SetNow overrides the time source used for subtask creation timestamps.
func (d *Decomposer) SetNow(now func() time.Time) {
	if now != nil {
		d.now = now
	}
}

// Decompose asks the generator for a breakdown of the task text, normalizes
// the raw subtasks, and validates the resulting dependency graph.
func (d *Decomposer) Decompose(ctx context.Context, taskText string) (*Result, error) {
	raws, err := d.gen.GenerateDecomposition(ctx, taskText)
	if err != nil {
		return nil, fmt.Errorf("generate decomposition: %w", err)
	}
	d.debugLog("[decompose] generator returned %d raw subtasks", len(raws))

	subtasks, dropped, err := Normalize(raws, d.now())
	if err != nil {
		return nil, err
	}
	for _, dep := range dropped {
		d.debugLog("[decompose] dropped unresolvable dependency %q on subtask %s", dep.Ref, dep.SubtaskID)
	}

	g := graph.New()
	g.SetDebugLog(d.debugLog)
	if err := g.Build(subtasks); err != nil {
		return nil, fmt.Errorf("validate dependencies: %w", err)
	}

	return &Result{Graph: g, Subtasks: subtasks, Dropped: dropped}, nil
}

// Normalize converts raw generator output into subtasks ready for graph
// construction: deterministic subtask-N ids where ids are missing, complexity
// clamped to its valid range, priority defaulted to medium, and dependency
// references resolved by id first, then by title. Unresolvable references
// are dropped and reported instead of failing the decomposition; a stale
// reference must not block scheduling.
// Returns ErrInvalidGraph when no usable subtask remains.
func Normalize(raws []generate.RawSubtask, now time.Time) ([]*models.Subtask, []DroppedDependency, error) {
	type entry struct {
		raw generate.RawSubtask
		id  string
	}

	entries := make([]entry, 0, len(raws))
	for i, raw := range raws {
		title := strings.TrimSpace(raw.Title)
		desc := strings.TrimSpace(raw.Description)
		if title == "" && desc == "" {
			// Nothing to work with.
			continue
		}

		id := strings.TrimSpace(raw.ID)
		if id == "" {
			// Number by original position so ids stay stable across runs.
			id = fmt.Sprintf("subtask-%d", i+1)
		}
		entries = append(entries, entry{raw: raw, id: id})
	}

	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("%w: decomposition produced no usable subtasks", graph.ErrInvalidGraph)
	}

	// Dependency references resolve by id first, then by title.
	known := make(map[string]bool, len(entries))
	byTitle := make(map[string]string, len(entries))
	for _, e := range entries {
		known[e.id] = true
		if title := strings.TrimSpace(e.raw.Title); title != "" {
			byTitle[title] = e.id
		}
	}

	var dropped []DroppedDependency
	subtasks := make([]*models.Subtask, 0, len(entries))

	for _, e := range entries {
		title := strings.TrimSpace(e.raw.Title)
		if title == "" {
			title = titleFromDescription(strings.TrimSpace(e.raw.Description))
		}

		priority := models.Priority(strings.ToLower(strings.TrimSpace(e.raw.Priority)))
		if !priority.Valid() {
			priority = models.PriorityMedium
		}

		var deps []string
		seen := make(map[string]bool)
		for _, ref := range e.raw.Dependencies {
			ref = strings.TrimSpace(ref)
			if ref == "" {
				continue
			}

			var target string
			switch {
			case known[ref]:
				target = ref
			case byTitle[ref] != "":
				target = byTitle[ref]
			}
			if target == "" {
				dropped = append(dropped, DroppedDependency{SubtaskID: e.id, Ref: ref})
				continue
			}
			if seen[target] {
				continue
			}
			seen[target] = true
			deps = append(deps, target)
		}

		var criteria []string
		for _, c := range e.raw.AcceptanceCriteria {
			if c = strings.TrimSpace(c); c != "" {
				criteria = append(criteria, c)
			}
		}

		subtasks = append(subtasks, &models.Subtask{
			ID:                 e.id,
			Title:              title,
			Description:        strings.TrimSpace(e.raw.Description),
			Priority:           priority,
			Complexity:         models.ClampComplexity(int(e.raw.Complexity)),
			Dependencies:       deps,
			AcceptanceCriteria: criteria,
			CreatedAt:          now,
		})
	}

	return subtasks, dropped, nil
}

// titleFromDescription derives a display title when the generator omitted one.
func titleFromDescription(desc string) string {
	const max = 60
	if len(desc) <= max {
		return desc
	}
	return strings.TrimSpace(desc[:max]) + "..."
}
