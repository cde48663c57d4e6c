package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlrunner/internal/sandbox"
	"github.com/roach88/sqlrunner/internal/shell"
)

// Scenario is a declarative shell test: configuration applied before Start,
// steps run against the session, and assertions checked at the end.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file and
	// prefixes session ids.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Profile is an optional CUE profile applied before Properties and
	// Resources. Relative to the scenario file.
	Profile string `yaml:"profile,omitempty"`

	// Properties are registered with SetProperty in key order.
	Properties map[string]string `yaml:"properties,omitempty"`

	// Resources are staged in declaration order.
	Resources []Resource `yaml:"resources,omitempty"`

	// Output is the ExecuteQuery policy, "last" (default) or "all".
	Output string `yaml:"output,omitempty"`

	// Steps run in order on the started session.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Resource stages a file into the sandbox. Exactly one of Source and Data is
// set.
type Resource struct {
	Target string  `yaml:"target"`
	Source string  `yaml:"source,omitempty"`
	Data   *string `yaml:"data,omitempty"`
}

// Step runs one script. Exactly one of Execute and Query is set.
type Step struct {
	Execute string `yaml:"execute,omitempty"`
	Query   string `yaml:"query,omitempty"`

	// Expect lists the rows a query step must return. Nil skips the check;
	// an empty list requires no rows.
	Expect []string `yaml:"expect,omitempty"`

	// ExpectError, when set, requires the step to fail with an error whose
	// message contains it.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Kind returns EventExecute or EventQuery.
func (s Step) Kind() string {
	if s.Query != "" {
		return EventQuery
	}
	return EventExecute
}

// Script returns the step's SQL.
func (s Step) Script() string {
	if s.Query != "" {
		return s.Query
	}
	return s.Execute
}

// Assertion validates the final state of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Query and Expect are used by query_rows.
	Query  string   `yaml:"query,omitempty"`
	Expect []string `yaml:"expect,omitempty"`

	// Path and Contents are used by file_contents.
	Path     string `yaml:"path,omitempty"`
	Contents string `yaml:"contents,omitempty"`

	// Key and Value are used by conf_value.
	Key   string `yaml:"key,omitempty"`
	Value string `yaml:"value,omitempty"`

	// Event and Count are used by trace_count.
	Event string `yaml:"event,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertQueryRows    = "query_rows"
	AssertFileContents = "file_contents"
	AssertConfValue    = "conf_value"
	AssertTraceCount   = "trace_count"
)

// EventFailed is the trace_count event matching failed steps.
const EventFailed = "failed"

// LoadScenario reads and validates a scenario YAML file. Unknown fields are
// rejected. Relative profile and resource source paths are resolved against
// the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. baseDir resolves
// relative paths; an empty baseDir leaves them as written.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if baseDir != "" {
		scenario.Profile = resolvePath(baseDir, scenario.Profile)
		for i := range scenario.Resources {
			scenario.Resources[i].Source = resolvePath(baseDir, scenario.Resources[i].Source)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks required fields and field combinations.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := shell.ParseOutputPolicy(s.Output); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Profile != "" {
		if _, err := os.Stat(s.Profile); err != nil {
			return fmt.Errorf("profile not found: %s", s.Profile)
		}
	}

	for key := range s.Properties {
		if key == "" {
			return fmt.Errorf("properties: empty key")
		}
	}

	for i, r := range s.Resources {
		if err := sandbox.ValidatePath(r.Target); err != nil {
			return fmt.Errorf("resources[%d]: %w", i, err)
		}
		if (r.Source == "") == (r.Data == nil) {
			return fmt.Errorf("resources[%d]: exactly one of source or data is required", i)
		}
	}

	for i, step := range s.Steps {
		if (step.Execute == "") == (step.Query == "") {
			return fmt.Errorf("steps[%d]: exactly one of execute or query is required", i)
		}
		if step.Expect != nil && step.Query == "" {
			return fmt.Errorf("steps[%d]: expect requires a query step", i)
		}
		if step.Expect != nil && step.ExpectError != "" {
			return fmt.Errorf("steps[%d]: expect and expect_error are mutually exclusive", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertQueryRows:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for query_rows", index)
		}
	case AssertFileContents:
		if err := sandbox.ValidatePath(a.Path); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertConfValue:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for conf_value", index)
		}
	case AssertTraceCount:
		switch a.Event {
		case EventExecute, EventQuery, EventFailed:
		default:
			return fmt.Errorf("assertions[%d]: event must be %q, %q or %q for trace_count",
				index, EventExecute, EventQuery, EventFailed)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
