package harness

// TraceEvent is one dispatched action of a scenario run.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Action string `json:"action"`
	Key    string `json:"key,omitempty"`
	Line   string `json:"line"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when the expected listing and every assertion matched.
	Pass bool `json:"pass"`

	// Trace holds every action dispatched on the bus, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed check.
	Errors []string `json:"errors,omitempty"`

	// Location and Routes are the router store's final state.
	Location string   `json:"location"`
	Routes   []string `json:"routes"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Routes: []string{},
	}
}

// AddError records a failed check.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Lines returns the trace as text lines.
func (r *Result) Lines() []string {
	lines := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		lines[i] = e.Line
	}
	return lines
}
