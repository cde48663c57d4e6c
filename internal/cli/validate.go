package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlrunner/internal/config"
	"github.com/roach88/sqlrunner/internal/harness"
)

// FileValidation is the validation outcome for one file.
type FileValidation struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"` // "scenario" or "profile"
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check scenario and profile files without running them",
		Long: `Validate scenario YAML files (.yaml, .yml) and CUE profiles (.cue).

Scenarios are decoded strictly and checked for required fields and
referenced files. Profiles are unified with the profile schema and must
be concrete. Nothing is executed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		fv := validateFile(path)
		formatter.VerboseLog("validated %s (%s)", path, fv.Kind)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeInvalid, Message: "validation failed"}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(w, "✓ %s\n", fv.Path)
			} else {
				fmt.Fprintf(w, "✗ %s\n  %s\n", fv.Path, fv.Error)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(path string) FileValidation {
	fv := FileValidation{Path: path}

	var err error
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		fv.Kind = "scenario"
		_, err = harness.LoadScenario(path)
	case ".cue":
		fv.Kind = "profile"
		_, err = config.LoadProfile(path)
	default:
		fv.Kind = "unknown"
		err = fmt.Errorf("unsupported file type %q: expected .yaml, .yml or .cue", filepath.Ext(path))
	}

	if err != nil {
		fv.Error = err.Error()
		return fv
	}
	fv.Valid = true
	return fv
}
