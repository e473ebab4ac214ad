package harness

// CodeOK is the trace code of a step that succeeded.
const CodeOK = "ok"

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step     int    `json:"step"`
	Op       string `json:"op"`
	Identity string `json:"identity,omitempty"`
	Version  string `json:"version,omitempty"`
	Code     string `json:"code"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step matched its expect clause and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Current maps every recorded identity to its current version, or to its
	// state when it has none.
	Current map[string]string `json:"current"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Current: make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
