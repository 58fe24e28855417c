package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func trace(lines ...string) []TraceEvent {
	out := make([]TraceEvent, len(lines))
	for i, l := range lines {
		out[i] = TraceEvent{Seq: int64(i + 1), Line: l}
	}
	return out
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = trace("a one", "b two", "a three")
	result.Location = "/x"
	result.Routes = []string{"p", "c"}

	assert.Empty(t, EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Line: "b two"},
		{Type: AssertTraceOrder, Lines: []string{"a one", "a three"}},
		{Type: AssertTraceCount, Prefix: "a ", Count: 2},
		{Type: AssertFinalLocation, Location: "/x"},
		{Type: AssertActiveRoutes, Routes: []string{"p", "c"}},
	}))

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Line: "c"},
		{Type: AssertTraceOrder, Lines: []string{"a three", "b two"}},
		{Type: AssertTraceOrder, Lines: []string{"zzz"}},
		{Type: AssertTraceCount, Prefix: "b", Count: 2},
		{Type: AssertFinalLocation, Location: "/y"},
		{Type: AssertActiveRoutes, Routes: []string{"p"}},
		{Type: "other"},
	})
	assert.Len(t, errs, 7)
	assert.Contains(t, errs[0], "Assertion failed: trace_contains")
	assert.Contains(t, errs[0], "[2] b two")
	assert.Contains(t, errs[1], "missing after position 1: b two")
	assert.Contains(t, errs[2], "missing line: zzz")
	assert.Contains(t, errs[3], "1 lines")
	assert.Contains(t, errs[4], "Actual: /x")
	assert.Contains(t, errs[5], "[p c]")
	assert.Contains(t, errs[6], `unknown assertion type "other"`)
}

func TestCompareListing(t *testing.T) {
	assert.Empty(t, compareListing([]string{"a", "b"}, []string{"a", "b"}))

	msg := compareListing([]string{"a", "b"}, []string{"a", "c", "d"})
	assert.Contains(t, msg, "line 2")
	assert.Contains(t, msg, "want: b")
	assert.Contains(t, msg, "got:  c")

	msg = compareListing([]string{"a"}, []string{"a", "extra"})
	assert.Contains(t, msg, "want: (none)")
}
