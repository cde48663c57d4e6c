package harness

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/roach88/sqlrunner/internal/shell"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // assertion type
	Expected string       // human-readable expected outcome
	Actual   string       // human-readable actual outcome
	Trace    []TraceEvent // run trace, printed for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			if event.Type == EventStart {
				continue
			}
			status := "ok"
			if event.Failed() {
				status = event.Error
			}
			fmt.Fprintf(&buf, "  [%d] %s %q: %s\n", event.Step, event.Type, event.Script, status)
		}
	}

	return buf.String()
}

// AssertionContext gives assertions access to the running session.
type AssertionContext struct {
	Ctx     context.Context
	Session *shell.Session
}

// EvaluateAssertions evaluates all assertions against the result and returns
// one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertQueryRows, AssertFileContents, AssertConfValue:
			if actx == nil || actx.Session == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a session", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertQueryRows:
				err = assertQueryRows(actx, result.Trace, assertion)
			case AssertFileContents:
				err = assertFileContents(actx.Session, assertion)
			case AssertConfValue:
				err = assertConfValue(actx.Session, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

// assertQueryRows runs the assertion's query and compares every row.
func assertQueryRows(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := actx.Session.ExecuteQuery(ctx, a.Query)
	if err != nil {
		return &AssertionError{
			Type:     AssertQueryRows,
			Expected: fmt.Sprintf("query %q to succeed", a.Query),
			Actual:   fmt.Sprintf("query error: %v", err),
			Trace:    trace,
		}
	}

	expected := a.Expect
	if expected == nil {
		expected = []string{}
	}
	if !slices.Equal(expected, rows) {
		return &AssertionError{
			Type:     AssertQueryRows,
			Expected: fmt.Sprintf("%q returns %q", a.Query, expected),
			Actual:   fmt.Sprintf("%q", rows),
			Trace:    trace,
		}
	}
	return nil
}

// assertFileContents reads a file from the sandbox's virtual filesystem.
func assertFileContents(sess *shell.Session, a Assertion) error {
	path, err := sess.BaseDir().Resolve(a.Path)
	if err != nil {
		return fmt.Errorf("file_contents: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &AssertionError{
			Type:     AssertFileContents,
			Expected: fmt.Sprintf("file %s to exist", a.Path),
			Actual:   err.Error(),
		}
	}

	if string(data) != a.Contents {
		return &AssertionError{
			Type:     AssertFileContents,
			Expected: fmt.Sprintf("%s contains %q", a.Path, a.Contents),
			Actual:   fmt.Sprintf("%q", string(data)),
		}
	}
	return nil
}

// assertConfValue checks the live backend configuration.
func assertConfValue(sess *shell.Session, a Assertion) error {
	actual, ok := sess.Conf().Get(a.Key)
	if !ok {
		return &AssertionError{
			Type:     AssertConfValue,
			Expected: fmt.Sprintf("%s=%s", a.Key, a.Value),
			Actual:   fmt.Sprintf("%s is undefined", a.Key),
		}
	}
	if actual != a.Value {
		return &AssertionError{
			Type:     AssertConfValue,
			Expected: fmt.Sprintf("%s=%s", a.Key, a.Value),
			Actual:   fmt.Sprintf("%s=%s", a.Key, actual),
		}
	}
	return nil
}

// assertTraceCount checks how many step events match the assertion's event.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventStart {
			continue
		}
		if event.Type == a.Event || (a.Event == EventFailed && event.Failed()) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s events", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}
