package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, event.Line)
	}
	return buf.String()
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Line == a.Line {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: a.Line,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that lines appear in order. Other lines may come
// in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.Lines) && event.Line == a.Lines[next] {
			next++
		}
	}
	if next == len(a.Lines) {
		return nil
	}

	actual := fmt.Sprintf("missing after position %d: %s", next, a.Lines[next])
	if !slices.ContainsFunc(trace, func(e TraceEvent) bool { return e.Line == a.Lines[next] }) {
		actual = fmt.Sprintf("missing line: %s", a.Lines[next])
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("lines in order: %v", a.Lines),
		Actual:   actual,
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if strings.HasPrefix(event.Line, a.Prefix) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d lines starting with %q", a.Count, a.Prefix),
			Actual:   fmt.Sprintf("%d lines", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertFinalLocation(result *Result, a Assertion) error {
	if result.Location != a.Location {
		return &AssertionError{
			Type:     AssertFinalLocation,
			Expected: a.Location,
			Actual:   result.Location,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertActiveRoutes(result *Result, a Assertion) error {
	if !slices.Equal(result.Routes, a.Routes) {
		return &AssertionError{
			Type:     AssertActiveRoutes,
			Expected: fmt.Sprintf("%v", a.Routes),
			Actual:   fmt.Sprintf("%v", result.Routes),
			Trace:    result.Trace,
		}
	}
	return nil
}

// compareListing returns a description of the first difference between
// the expected and actual listings, or "".
func compareListing(expected, actual []string) string {
	for i := 0; i < len(expected) || i < len(actual); i++ {
		var want, got string
		if i < len(expected) {
			want = expected[i]
		}
		if i < len(actual) {
			got = actual[i]
		}
		if want != got {
			return fmt.Sprintf("listing differs at line %d:\n  want: %s\n  got:  %s\n\nFull trace:\n  %s",
				i+1, orNone(want), orNone(got), strings.Join(actual, "\n  "))
		}
	}
	return ""
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// EvaluateAssertions evaluates all assertions against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalLocation:
			err = assertFinalLocation(result, assertion)
		case AssertActiveRoutes:
			err = assertActiveRoutes(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
