package harness

// Trace event types.
const (
	EventStart   = "start"
	EventExecute = "execute"
	EventQuery   = "query"
)

// TraceEvent records one observable step of a scenario run.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Step int    `json:"step,omitempty"` // 1-based; 0 for the start event
	Type string `json:"type"`

	// Session is set on the start event.
	Session string `json:"session,omitempty"`

	// Script is the step's SQL, as written in the scenario.
	Script string `json:"script,omitempty"`

	// Rows returned by a query step.
	Rows []string `json:"rows,omitempty"`

	// Error is the shell error code of a failed step, e.g. "EXECUTION".
	Error string `json:"error,omitempty"`

	// FailedStatement is the statement that failed, if any.
	FailedStatement string `json:"failed_statement,omitempty"`
}

// Failed reports whether the event records a failed step.
func (e TraceEvent) Failed() bool {
	return e.Error != ""
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists the run's events in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
