package harness

import (
	"fmt"

	"github.com/roach88/tracescope/internal/router"
	"github.com/roach88/tracescope/internal/routespec"
)

// Run executes a scenario in a fresh session with an in-memory trace log.
//
// Execution flow:
//  1. Build the route tree from the scenario's routes file
//  2. Start a session with deterministic keys and a memory history
//  3. Run each step and wait for its navigations to finish
//  4. Compare the listing and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	tree, err := routespec.LoadTree(scenario.Routes)
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}

	s, err := NewSession(tree, SessionOptions{
		KeyPrefix:    scenario.KeyPrefix,
		MaxRedirects: scenario.MaxRedirects,
	})
	if err != nil {
		return nil, err
	}
	defer s.Close()

	for i, step := range scenario.Steps {
		if err := execute(s, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	result := NewResult()
	result.Trace = s.Trace()
	result.Location = s.Location()
	result.Routes = s.Routes()

	if len(scenario.Expect) > 0 {
		if msg := compareListing(scenario.Expect, result.Lines()); msg != "" {
			result.AddError(msg)
		}
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func execute(s *Session, step Step) error {
	switch {
	case step.Navigate != "":
		return s.Navigate(step.Navigate, router.Mode(step.Mode))
	case step.Back > 0:
		return s.Go(-step.Back)
	default:
		return s.Go(step.Forward)
	}
}
