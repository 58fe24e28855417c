package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of navigations with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Routes is the route spec file, relative to the scenario file.
	Routes string `yaml:"routes"`

	// KeyPrefix prefixes generated navigation keys. Defaults to "nav".
	KeyPrefix string `yaml:"key_prefix,omitempty"`

	// MaxRedirects overrides the navigator's redirect limit when positive.
	MaxRedirects int `yaml:"max_redirects,omitempty"`

	// Steps drive the navigator.
	Steps []Step `yaml:"steps"`

	// Expect is the complete expected trace listing, if given.
	Expect []string `yaml:"expect,omitempty"`

	// Assertions validate the trace and the final router state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one scenario action. Exactly one of Navigate, Back and Forward
// is set.
type Step struct {
	// Navigate dispatches a navigate command for this location.
	Navigate string `yaml:"navigate,omitempty"`
	// Mode is push (default) or replace.
	Mode string `yaml:"mode,omitempty"`
	// Back moves history back by n entries.
	Back int `yaml:"back,omitempty"`
	// Forward moves history forward by n entries.
	Forward int `yaml:"forward,omitempty"`
}

// Assertion validates the trace or the final router state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Line is the trace line for trace_contains.
	Line string `yaml:"line,omitempty"`

	// Lines are the ordered trace lines for trace_order.
	Lines []string `yaml:"lines,omitempty"`

	// Prefix and Count are used by trace_count.
	Prefix string `yaml:"prefix,omitempty"`
	Count  int    `yaml:"count,omitempty"`

	// Location is the expected pathname for final_location.
	Location string `yaml:"location,omitempty"`

	// Routes are the expected route ids for active_routes.
	Routes []string `yaml:"routes,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalLocation = "final_location"
	AssertActiveRoutes  = "active_routes"
)

// LoadScenario reads a scenario file and resolves its routes path relative
// to the file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Routes != "" && !filepath.IsAbs(scenario.Routes) {
		scenario.Routes = filepath.Join(filepath.Dir(path), scenario.Routes)
	}
	if _, err := os.Stat(scenario.Routes); err != nil {
		return nil, fmt.Errorf("invalid scenario: routes file not found: %s", scenario.Routes)
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML. The routes path is left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Routes == "" {
		return fmt.Errorf("routes is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Expect) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Navigate != "" {
			set++
		}
		if step.Back > 0 {
			set++
		}
		if step.Forward > 0 {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of navigate, back, forward is required", i)
		}
		switch step.Mode {
		case "", "push", "replace":
		default:
			return fmt.Errorf("steps[%d]: unknown mode %q", i, step.Mode)
		}
		if step.Mode != "" && step.Navigate == "" {
			return fmt.Errorf("steps[%d]: mode only applies to navigate", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Prefix == "" {
			return fmt.Errorf("assertions[%d]: prefix is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalLocation:
		if a.Location == "" {
			return fmt.Errorf("assertions[%d]: location is required for final_location", index)
		}
	case AssertActiveRoutes:
		if a.Routes == nil {
			return fmt.Errorf("assertions[%d]: routes is required for active_routes (use [] for none)", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
