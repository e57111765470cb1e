// Package graph provides a dependency graph for subtask scheduling.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Konard/problem-solving/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found between subtasks.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrInvalidGraph indicates the subtask set cannot form a graph, for example
// duplicate ids or a dependency on an id that does not exist.
var ErrInvalidGraph = errors.New("invalid task graph")

// CycleError reports a circular dependency and names one subtask on the cycle.
type CycleError struct {
	// InvolvedID is a subtask id known to sit on the cycle.
	InvolvedID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency involving subtask %s", e.InvolvedID)
}

// Unwrap makes errors.Is(err, ErrCycleDetected) match.
func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// DependencyGraph represents a directed acyclic graph of subtask dependencies.
// Subtasks are nodes, and edges represent "blocked by" relationships.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps subtask ID to the subtask itself.
	nodes map[string]*models.Subtask
	// order holds subtask IDs in declaration order. All traversals walk this
	// slice so results are stable across runs.
	order []string
	// edges maps subtask ID to IDs of subtasks it depends on (is blocked by).
	edges map[string][]string
	// completed tracks which subtasks have been marked complete.
	completed map[string]bool
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:     make(map[string]*models.Subtask),
		edges:     make(map[string][]string),
		completed: make(map[string]bool),
		debugLog:  func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs the dependency graph from a slice of subtasks.
// Returns ErrInvalidGraph for duplicate ids or dependencies on unknown
// subtasks, and a CycleError if the dependencies are circular.
func (g *DependencyGraph) Build(subtasks []*models.Subtask) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.Build] building graph from %d subtasks", len(subtasks))

	// First pass: register all subtasks as nodes.
	for _, st := range subtasks {
		if _, exists := g.nodes[st.ID]; exists {
			return fmt.Errorf("%w: duplicate subtask id %s", ErrInvalidGraph, st.ID)
		}
		g.debugLog("[graph.Build] adding subtask: id=%s title=%q dependencies=%v", st.ID, st.Title, st.Dependencies)
		g.nodes[st.ID] = st
		g.order = append(g.order, st.ID)
		g.edges[st.ID] = nil // Initialize edges slice.
	}

	// Second pass: build edges from Dependencies fields.
	for _, st := range subtasks {
		for _, depID := range st.Dependencies {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("%w: subtask %s depends on unknown subtask %s", ErrInvalidGraph, st.ID, depID)
			}
			g.edges[st.ID] = append(g.edges[st.ID], depID)
		}
	}

	g.debugLog("[graph.Build] final edges map: %v", g.edges)

	// Check for cycles (use internal method since we hold the lock).
	if id, found := g.findCycleLocked(); found {
		return &CycleError{InvolvedID: id}
	}

	g.debugLog("[graph.Build] graph built successfully with %d nodes", len(g.nodes))
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, found := g.findCycleLocked()
	return found
}

// findCycleLocked is the internal implementation that assumes the lock is
// held. It returns the id of a subtask on the first cycle found, if any.
func (g *DependencyGraph) findCycleLocked() (string, bool) {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.order))

	var involved string
	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1 // Mark as in progress.

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				// Found a back edge - the dependency is still on the active path.
				involved = depID
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
			// color == 2 means already processed, skip.
		}

		colors[id] = 2 // Mark as done.
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 {
			if visit(id) {
				return involved, true
			}
		}
	}

	return "", false
}

// TopologicalSort returns subtask IDs in an order where all dependencies
// come before the subtasks that depend on them. Ties are broken by
// declaration order, so the result is deterministic for a given input.
// Returns a CycleError if the graph contains a cycle.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if id, found := g.findCycleLocked(); found {
		return nil, &CycleError{InvolvedID: id}
	}

	// Track visited nodes and build result in reverse post-order.
	visited := make(map[string]bool, len(g.order))
	result := make([]string, 0, len(g.order))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true

		// Visit all dependencies first.
		for _, depID := range g.edges[id] {
			visit(depID)
		}

		// Add this node after its dependencies.
		result = append(result, id)
	}

	// Visit all nodes in declaration order.
	for _, id := range g.order {
		visit(id)
	}

	return result, nil
}

// ParallelBatches partitions the subtasks into sequential waves. Each batch
// holds every not-yet-placed subtask whose dependencies all sit in earlier
// batches, so the members of one batch can run concurrently while the batches
// themselves run in order. Batch membership follows declaration order.
// Returns a CycleError if the graph contains a cycle.
func (g *DependencyGraph) ParallelBatches() ([][]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if id, found := g.findCycleLocked(); found {
		return nil, &CycleError{InvolvedID: id}
	}

	placed := make(map[string]bool, len(g.order))
	var batches [][]string

	for len(placed) < len(g.order) {
		var batch []string
		for _, id := range g.order {
			if placed[id] {
				continue
			}
			satisfied := true
			for _, depID := range g.edges[id] {
				if !placed[depID] {
					satisfied = false
					break
				}
			}
			if satisfied {
				batch = append(batch, id)
			}
		}

		if len(batch) == 0 {
			// No progress means the remainder is cyclic. The upfront check
			// makes this unreachable, but report the first stuck id anyway.
			for _, id := range g.order {
				if !placed[id] {
					return nil, &CycleError{InvolvedID: id}
				}
			}
		}

		// Mark after collecting so membership only considers earlier batches.
		for _, id := range batch {
			placed[id] = true
		}
		batches = append(batches, batch)
	}

	g.debugLog("[graph.ParallelBatches] partitioned %d subtasks into %d batches", len(g.order), len(batches))
	return batches, nil
}

// GetReady returns subtask IDs that have no unmet dependencies and are not
// yet completed. These subtasks can be executed in parallel.
func (g *DependencyGraph) GetReady() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for _, id := range g.order {
		// Skip already completed subtasks.
		if g.completed[id] {
			continue
		}

		// Check if all dependencies are satisfied.
		allDepsComplete := true
		for _, depID := range g.edges[id] {
			if !g.completed[depID] {
				allDepsComplete = false
				break
			}
		}

		if allDepsComplete {
			ready = append(ready, id)
		}
	}

	g.debugLog("[graph.GetReady] returning %d ready subtasks: %v", len(ready), ready)
	return ready
}

// MarkComplete marks a subtask as completed in the graph.
// This affects subsequent calls to GetReady.
func (g *DependencyGraph) MarkComplete(subtaskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.MarkComplete] marking subtask %s as complete", subtaskID)
	g.completed[subtaskID] = true
}

// GetSubtask returns the subtask for a given ID, or nil if not found.
func (g *DependencyGraph) GetSubtask(subtaskID string) *models.Subtask {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[subtaskID]
}

// Size returns the number of subtasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// GetDependencies returns the IDs of subtasks that the given subtask depends on.
func (g *DependencyGraph) GetDependencies(subtaskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[subtaskID]
}

// GetDependents returns the IDs of subtasks that depend on the given subtask,
// in declaration order.
func (g *DependencyGraph) GetDependents(subtaskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, id := range g.order {
		for _, depID := range g.edges[id] {
			if depID == subtaskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents
}

// GetCompletedIDs returns the IDs of all subtasks marked as completed, in
// declaration order.
func (g *DependencyGraph) GetCompletedIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ids []string
	for _, id := range g.order {
		if g.completed[id] {
			ids = append(ids, id)
		}
	}
	return ids
}
