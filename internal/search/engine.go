package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Konard/problem-solving/internal/generate"
	"github.com/Konard/problem-solving/pkg/models"
)

// DefaultMaxAttempts bounds generator calls per search when no limit is set.
const DefaultMaxAttempts = 3

// Config configures an Engine.
type Config struct {
	// MaxAttempts is the maximum number of generator calls per search
	// (default: 3).
	MaxAttempts int
	// Rules are the structural checks. Nil means DefaultRules over the
	// effective RuleConfig.
	Rules []Rule
	// RuleConfig drives marker matching for rules and scoring. The zero
	// value means DefaultRuleConfig.
	RuleConfig RuleConfig
}

// Request carries per-search context into the engine.
type Request struct {
	// Kind selects the artifact type to search for.
	Kind models.ArtifactKind
	// TaskText is the overall problem statement.
	TaskText string
	// TestArtifact is the accepted test content when searching for a
	// solution. Empty otherwise.
	TestArtifact string
}

// Attempt records one generation try.
type Attempt struct {
	// Number is the 1-based attempt index.
	Number int
	// Candidate is the generated artifact. Nil when the generator errored.
	Candidate *models.Candidate
	// FailureReason explains why the attempt did not win: the failed rules,
	// or the generator error. Empty for a winning attempt.
	FailureReason string
	// Passed marks the attempt that satisfied every rule.
	Passed bool
	// FinishedAt is when the attempt concluded.
	FinishedAt time.Time
}

// Result is the outcome of one search.
type Result struct {
	// Attempts holds every try, in order.
	Attempts []Attempt
	// Chosen is the accepted candidate: the first one to pass validation,
	// or the best-scoring survivor when the budget ran out. Nil when every
	// attempt errored.
	Chosen *models.Candidate
	// Status is success or exhausted.
	Status models.SearchStatus
}

// Engine runs the bounded, feedback-guided search for one subtask at a time.
// Each Search call is independent; the engine itself is stateless between
// calls and safe for concurrent use.
type Engine struct {
	gen         generate.Generator
	rules       []Rule
	cfg         RuleConfig
	maxAttempts int
	debugLog    func(format string, args ...interface{})
}

// NewEngine creates a search engine over the given generator.
func NewEngine(gen generate.Generator, cfg Config) *Engine {
	ruleCfg := cfg.RuleConfig
	if ruleCfg.LogicMarkers == nil && ruleCfg.PlaceholderMarkers == nil {
		ruleCfg = DefaultRuleConfig()
	}

	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules(ruleCfg)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Engine{
		gen:         gen,
		rules:       rules,
		cfg:         ruleCfg,
		maxAttempts: maxAttempts,
		debugLog:    func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetDebugLog sets the debug logging function.
func (e *Engine) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		e.debugLog = fn
	}
}

// MaxAttempts returns the per-search attempt budget.
func (e *Engine) MaxAttempts() int {
	return e.maxAttempts
}

// Search generates candidates for the subtask until one passes every rule or
// the attempt budget is spent. From the second attempt on, the previous
// attempt's failure reasons ride along in the generation request. When the
// budget runs out, the highest-scoring candidate among non-errored attempts
// is kept (ties go to the earliest attempt); if every attempt errored,
// Chosen is nil.
//
// The context is checked between attempts only: cancellation never interrupts
// an in-flight generation, it stops the next one from starting.
func (e *Engine) Search(ctx context.Context, subtask *models.Subtask, req Request) (*Result, error) {
	result := &Result{}
	var prevFailures []string

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cand, err := e.gen.GenerateArtifact(ctx, generate.ArtifactRequest{
			Subtask:        subtask,
			Kind:           req.Kind,
			TaskText:       req.TaskText,
			TestArtifact:   req.TestArtifact,
			FailureReasons: prevFailures,
			Attempt:        attempt,
		})
		if err != nil {
			reason := fmt.Sprintf("generator error: %v", err)
			e.debugLog("[search] subtask %s %s attempt %d/%d: %s",
				subtask.ID, req.Kind, attempt, e.maxAttempts, reason)
			result.Attempts = append(result.Attempts, Attempt{Number: attempt, FailureReason: reason, FinishedAt: time.Now()})
			prevFailures = []string{reason}
			continue
		}

		failures := e.check(cand)
		if len(failures) == 0 {
			e.debugLog("[search] subtask %s %s attempt %d/%d: accepted",
				subtask.ID, req.Kind, attempt, e.maxAttempts)
			result.Attempts = append(result.Attempts, Attempt{Number: attempt, Candidate: cand, Passed: true, FinishedAt: time.Now()})
			result.Chosen = cand
			result.Status = models.SearchSuccess
			return result, nil
		}

		reason := strings.Join(failures, "; ")
		e.debugLog("[search] subtask %s %s attempt %d/%d: rejected: %s",
			subtask.ID, req.Kind, attempt, e.maxAttempts, reason)
		result.Attempts = append(result.Attempts, Attempt{Number: attempt, Candidate: cand, FailureReason: reason, FinishedAt: time.Now()})
		prevFailures = failures
	}

	// Budget spent: keep the best-scoring candidate among attempts that
	// produced one. Strict comparison keeps the earliest on ties.
	result.Status = models.SearchExhausted
	best := -1
	bestScore := 0
	for i, a := range result.Attempts {
		if a.Candidate == nil {
			continue
		}
		score := Score(a.Candidate, e.cfg)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best >= 0 {
		result.Chosen = result.Attempts[best].Candidate
		e.debugLog("[search] subtask %s %s exhausted, kept attempt %d (score %d)",
			subtask.ID, req.Kind, result.Attempts[best].Number, bestScore)
	} else {
		e.debugLog("[search] subtask %s %s exhausted with nothing to keep", subtask.ID, req.Kind)
	}

	return result, nil
}

// check runs every rule, returning one message per failed rule.
func (e *Engine) check(c *models.Candidate) []string {
	var failures []string
	for _, rule := range e.rules {
		if err := rule.Check(c); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", rule.Name(), err))
		}
	}
	return failures
}
