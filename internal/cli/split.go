package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/sqlrunner/internal/script"
)

// SplitResult is the JSON payload of the split command.
type SplitResult struct {
	Statements []string `json:"statements"`
}

// NewSplitCommand creates the split command.
func NewSplitCommand(rootOpts *RootOptions) *cobra.Command {
	var inline string

	cmd := &cobra.Command{
		Use:   "split [script-file | -]",
		Short: "Print the statements a script splits into",
		Long: `Split a script into statements exactly as run does, without starting a
backend. Comments are dropped and semicolons inside quoted literals are
kept. In text mode each statement is printed on its own line followed by
a semicolon.

Examples:
  sqlrunner split setup.sql
  sqlrunner split -e "SELECT 'a;b'; SELECT 2" --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			src, err := readScript(inline, args, cmd.InOrStdin())
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeInvalidArgs, err.Error(), nil)
			}

			statements := script.Split(src)
			if statements == nil {
				statements = []string{}
			}
			formatter.VerboseLog("%d statement(s)", len(statements))

			if rootOpts.Format == "json" {
				return formatter.Success(SplitResult{Statements: statements})
			}
			lines := make([]string, len(statements))
			for i, stmt := range statements {
				lines[i] = stmt + ";"
			}
			return formatter.Success(lines)
		},
	}

	cmd.Flags().StringVarP(&inline, "execute", "e", "", "inline script to split")

	return cmd
}
