package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/sqlrunner/internal/config"
	"github.com/roach88/sqlrunner/internal/sandbox"
	"github.com/roach88/sqlrunner/internal/shell"
	"github.com/roach88/sqlrunner/internal/testutil"
)

// Harness runs one scenario against one session.
type Harness struct {
	sess   *shell.Session
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a scenario with logging discarded.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, nil)
}

// RunContext executes a scenario in a fresh owned sandbox and returns the
// result. Expectation and assertion failures are reported in the Result; a
// non-nil error means the scenario could not be run at all (bad profile,
// unstageable resource, backend failed to start).
//
// The sandbox is removed before RunContext returns.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	output, err := shell.ParseOutputPolicy(scenario.Output)
	if err != nil {
		return nil, err
	}

	sb, err := sandbox.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox: %w", err)
	}

	sh := shell.New(sb, shell.Options{
		Output: output,
		IDs:    testutil.NewFixedIDGenerator(scenario.Name),
		Logger: logger.With("scenario", scenario.Name),
	})
	defer func() {
		if err := sh.Close(); err != nil {
			logger.Warn("failed to close shell", "scenario", scenario.Name, "error", err)
		}
	}()

	if err := configure(sh, scenario); err != nil {
		return nil, fmt.Errorf("failed to configure shell: %w", err)
	}

	sess, err := sh.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	h := &Harness{
		sess:   sess,
		clock:  testutil.NewDeterministicClock(),
		logger: logger,
	}

	result := NewResult()
	result.AddTrace(TraceEvent{Seq: h.clock.Tick(), Type: EventStart, Session: sess.ID()})

	h.executeSteps(ctx, scenario.Steps, result)

	actx := &AssertionContext{Ctx: ctx, Session: sess}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"errors", len(result.Errors),
	)
	return result, nil
}

// configure applies the profile, then properties in key order, then
// resources in declaration order.
func configure(sh *shell.Shell, s *Scenario) error {
	if s.Profile != "" {
		p, err := config.LoadProfile(s.Profile)
		if err != nil {
			return err
		}
		if err := sh.ApplyProfile(p); err != nil {
			return err
		}
		// An explicit scenario output overrides the profile's.
		if s.Output != "" {
			if err := sh.SetOutputPolicy(shell.OutputPolicy(s.Output)); err != nil {
				return err
			}
		}
	}

	for _, key := range config.Properties(s.Properties).Keys() {
		if err := sh.SetProperty(key, s.Properties[key]); err != nil {
			return err
		}
	}

	for _, r := range s.Resources {
		var err error
		if r.Data != nil {
			err = sh.AddResource(r.Target, *r.Data)
		} else {
			err = sh.AddResourceFile(r.Target, r.Source)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// executeSteps runs every step in order. A failing step is recorded and the
// run continues, since the session stays usable after a statement error.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	for i, step := range steps {
		event := TraceEvent{
			Seq:    h.clock.Tick(),
			Step:   i + 1,
			Type:   step.Kind(),
			Script: step.Script(),
		}

		var (
			rows []string
			err  error
		)
		if step.Kind() == EventQuery {
			rows, err = h.sess.ExecuteQuery(ctx, step.Query)
			event.Rows = rows
		} else {
			err = h.sess.Execute(ctx, step.Execute)
		}

		if err != nil {
			event.Error, event.FailedStatement = describeError(err)
		}
		result.AddTrace(event)

		for _, msg := range checkStep(i, step, rows, err) {
			result.AddError(msg)
		}

		h.logger.Debug("step completed",
			"step", i+1,
			"type", event.Type,
			"rows", len(rows),
			"error", event.Error,
		)
	}
}

// describeError extracts the deterministic parts of a shell error: its code
// and the failing statement. Driver messages are left out of the trace.
func describeError(err error) (code, statement string) {
	var se *shell.Error
	if errors.As(err, &se) {
		return string(se.Code), se.Statement
	}
	return "UNKNOWN", ""
}

// checkStep compares a step's outcome with its expectations.
func checkStep(i int, step Step, rows []string, err error) []string {
	var errs []string
	switch {
	case step.ExpectError != "" && err == nil:
		errs = append(errs, fmt.Sprintf("step %d: expected error containing %q, got success", i+1, step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		errs = append(errs, fmt.Sprintf("step %d: expected error containing %q, got: %v", i+1, step.ExpectError, err))
	case step.ExpectError == "" && err != nil:
		errs = append(errs, fmt.Sprintf("step %d: unexpected error: %v", i+1, err))
	case step.Expect != nil && !slices.Equal(step.Expect, rows):
		errs = append(errs, fmt.Sprintf("step %d: expected rows %q, got %q", i+1, step.Expect, rows))
	}
	return errs
}
