package harness

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ScenarioResult is the outcome of one scenario file in a suite.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "matched", "updated" or empty
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult summarizes a suite run.
type SuiteResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// SuiteOptions configures RunSuite.
type SuiteOptions struct {
	// Update rewrites golden files instead of comparing against them.
	Update bool

	// Logger receives per-scenario logs. Nil discards.
	Logger *slog.Logger
}

// DiscoverScenarios returns the .yaml and .yml files under dir, in lexical
// order. A non-empty filter is a filepath.Match pattern applied to the file
// name without its extension. Files under golden/ directories are skipped.
func DiscoverScenarios(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(d.Name(), ext)
			if matched, _ := filepath.Match(filter, name); !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// RunSuite loads and runs every scenario file. A scenario passes when it
// loads, runs, meets all expectations and, if it has a golden file next to
// it, matches that file.
func RunSuite(ctx context.Context, files []string, opts SuiteOptions) *SuiteResult {
	result := &SuiteResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}

	for _, file := range files {
		sr := runSuiteScenario(ctx, file, opts)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}
	return result
}

func runSuiteScenario(ctx context.Context, file string, opts SuiteOptions) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), Path: file}

	scenario, err := LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	run, err := RunContext(ctx, scenario, opts.Logger)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
		return sr
	}
	sr.Errors = run.Errors

	goldenPath := GoldenPath(file)
	switch {
	case opts.Update:
		if err := WriteGolden(goldenPath, scenario.Name, run); err != nil {
			sr.Errors = append(sr.Errors, err.Error())
			return sr
		}
		sr.Golden = "updated"
	case fileExists(goldenPath):
		match, err := CompareGolden(goldenPath, scenario.Name, run)
		if err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("golden comparison failed: %v", err))
			return sr
		}
		if !match {
			sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
			return sr
		}
		sr.Golden = "matched"
	}

	sr.Pass = run.Pass
	return sr
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
