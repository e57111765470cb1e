package generate

import (
	"fmt"
	"strings"

	"github.com/Konard/problem-solving/pkg/models"
)

// decompositionSystem frames every decomposition call.
const decompositionSystem = "You decompose development tasks into small, independently solvable subtasks. You respond with JSON only."

// artifactSystem frames every artifact-generation call.
const artifactSystem = "You write complete, self-contained artifacts for development subtasks. You respond with the artifact content only."

// decompositionPrompt is the prompt template for task decomposition.
const decompositionPrompt = `Break this task into small, independently solvable subtasks. Each subtask should be completable on its own once its dependencies are done.

Task:
%s

Return ONLY a JSON array of subtasks with this exact structure (no other text):
[
  {
    "id": "subtask-1",
    "title": "Short subtask title",
    "description": "Detailed subtask description",
    "priority": "high|medium|low",
    "complexity": 3,
    "dependencies": ["subtask-1"],
    "acceptance_criteria": ["Criteria to verify this subtask is complete"]
  }
]

Guidelines:
- Subtasks should be as independent as possible so they can run in parallel
- Only add a dependency when it is truly necessary (A must complete before B)
- ids must be unique; use "subtask-N" numbered in order
- dependencies must reference ids from this same array, never titles
- complexity is an integer from 1 (trivial) to 10 (very involved)
- Use an empty array [] for dependencies if there are none
- Acceptance criteria should be specific and verifiable`

// testArtifactPrompt is the template for generating a verification artifact.
const testArtifactPrompt = `Write a test artifact for the subtask below. The test must pin down observable behavior the eventual solution has to satisfy.

Overall task:
%s

Subtask: %s
Description: %s
Acceptance criteria:
%s

Requirements:
- Return ONLY the artifact content, no commentary
- The test must be self-contained
- Cover the acceptance criteria explicitly
- No placeholder or stub sections`

// solutionArtifactPrompt is the template for generating an implementation.
const solutionArtifactPrompt = `Write the implementation for the subtask below. It must satisfy the provided test artifact.

Overall task:
%s

Subtask: %s
Description: %s
Acceptance criteria:
%s

Test artifact the implementation must satisfy:
%s

Requirements:
- Return ONLY the artifact content, no commentary
- Implement the behavior completely; no placeholder or stub sections
- Handle failure paths explicitly`

// composeFreeformPrompt is the template for the narrative merge.
const composeFreeformPrompt = `The task below was split into subtasks and each was solved independently. Write a short narrative explaining how the solved pieces fit together into one coherent change.

Task:
%s

Solved pieces in order:
%s
Return ONLY the narrative text.`

// BuildFeedback renders the previous attempt's validation failures for
// injection into a retry prompt. Returns "" when there is nothing to report.
func BuildFeedback(attempt int, failures []string) string {
	if attempt <= 1 || len(failures) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Previous attempt failed validation:\n")
	for _, reason := range failures {
		fmt.Fprintf(&b, "- %s\n", reason)
	}
	b.WriteString("\nPlease address these issues in your next attempt.\n")
	return b.String()
}

// BuildArtifactPrompt renders the full prompt for one generation attempt,
// including feedback from earlier failed attempts.
func BuildArtifactPrompt(req ArtifactRequest) string {
	criteria := "- (none given)"
	if len(req.Subtask.AcceptanceCriteria) > 0 {
		lines := make([]string, len(req.Subtask.AcceptanceCriteria))
		for i, c := range req.Subtask.AcceptanceCriteria {
			lines[i] = "- " + c
		}
		criteria = strings.Join(lines, "\n")
	}

	var prompt string
	switch req.Kind {
	case models.ArtifactSolution:
		prompt = fmt.Sprintf(solutionArtifactPrompt,
			req.TaskText, req.Subtask.Title, req.Subtask.Description, criteria, req.TestArtifact)
	default:
		prompt = fmt.Sprintf(testArtifactPrompt,
			req.TaskText, req.Subtask.Title, req.Subtask.Description, criteria)
	}

	if feedback := BuildFeedback(req.Attempt, req.FailureReasons); feedback != "" {
		prompt += "\n\n" + feedback
	}
	return prompt
}

// BuildComposePrompt renders the freeform composition prompt. Only titles go
// into the piece list; full artifact bodies would blow past any useful
// context budget without improving the narrative.
func BuildComposePrompt(req ComposeRequest) string {
	var pieces strings.Builder
	for i, s := range req.Sections {
		fmt.Fprintf(&pieces, "%d. %s\n", i+1, s.Title)
	}
	return fmt.Sprintf(composeFreeformPrompt, req.TaskText, pieces.String())
}
