package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlrunner/internal/config"
	"github.com/roach88/sqlrunner/internal/sandbox"
	"github.com/roach88/sqlrunner/internal/script"
	"github.com/roach88/sqlrunner/internal/shell"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Execute   string        // inline script (-e)
	Sets      []string      // --set key=value
	Resources []string      // --resource target=path
	Data      []string      // --data target=literal
	Profile   string        // --profile file.cue
	Output    string        // --output last|all
	Keep      bool          // keep the sandbox after the run
	Dir       string        // parent directory for the sandbox
	Timeout   time.Duration // bound on the whole run; 0 means none

	// IDs overrides the session id generator (for testing).
	// If nil, defaults to shell.UUIDv7Generator.
	IDs shell.IDGenerator
}

// RunResult is the JSON payload of a successful run.
type RunResult struct {
	Session    string   `json:"session"`
	Statements int      `json:"statements"`
	Rows       []string `json:"rows"`
	Sandbox    string   `json:"sandbox,omitempty"` // set with --keep
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [script-file | -]",
		Short: "Run a SQL script against a fresh backend",
		Long: `Start an embedded backend in a new sandbox, stage resources, run a
script and print the rows it returns.

The script comes from a file, from stdin ("-"), or from --execute.
Statements are separated by semicolons and run in order; the first
failing statement stops the script.

Exit codes:
  0 - Script succeeded
  1 - A statement failed
  2 - Command error (bad flags, unreadable resource, backend failed to start)

Examples:
  sqlrunner run setup.sql
  sqlrunner run -e "SELECT 1; SELECT 2" --output all
  sqlrunner run load.sql --data data/t.csv='a,b' --set sqlite.foreign_keys=OFF
  sqlrunner run load.sql --profile test.cue --keep --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Execute, "execute", "e", "", "inline script to run")
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "backend property key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Resources, "resource", nil, "stage a local file: target=path (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Data, "data", nil, "stage literal data: target=content (repeatable)")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "CUE profile with properties and resources")
	cmd.Flags().StringVar(&opts.Output, "output", string(shell.OutputLast), "rows to print: last|all")
	cmd.Flags().BoolVar(&opts.Keep, "keep", false, "keep the sandbox directory after the run")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "parent directory for the sandbox (default: system temp)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "abort the run after this long (e.g. 30s)")

	return cmd
}

func runScript(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	src, err := readScript(opts.Execute, args, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidArgs, err.Error(), nil)
	}

	output, err := shell.ParseOutputPolicy(opts.Output)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidArgs, err.Error(), nil)
	}

	sb, err := sandbox.New(opts.Dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to create sandbox", err.Error())
	}
	if opts.Keep {
		sb.Keep()
	}

	sh := shell.New(sb, shell.Options{
		Output: output,
		IDs:    opts.IDs,
		Logger: logger,
	})
	defer func() {
		if err := sh.Close(); err != nil {
			logger.Error("failed to close shell", "error", err)
		}
	}()

	if err := configureShell(sh, opts, cmd.Flags().Changed("output")); err != nil {
		code, exit := classifyShellError(err)
		return formatter.Fail(exit, code, err.Error(), nil)
	}
	formatter.VerboseLog("sandbox: %s", sb.Dir())

	ctx, stop := signal.NotifyContext(parentContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	sess, err := sh.Start(ctx)
	if err != nil {
		code, exit := classifyShellError(err)
		return formatter.Fail(exit, code, err.Error(), nil)
	}

	rows, err := sess.ExecuteQuery(ctx, src)
	if err != nil {
		code, exit := classifyShellError(err)
		var details interface{}
		if se, ok := asShellError(err); ok && se.Statement != "" {
			details = map[string]interface{}{"index": se.Index, "statement": se.Statement}
		}
		return formatter.Fail(exit, code, err.Error(), details)
	}

	if opts.Format == "json" {
		result := RunResult{
			Session:    sess.ID(),
			Statements: len(script.Split(src)),
			Rows:       rows,
		}
		if opts.Keep {
			result.Sandbox = sb.Dir()
		}
		return formatter.encode(CLIResponse{Status: "ok", Data: result, SessionID: sess.ID()})
	}

	if err := formatter.Success(rows); err != nil {
		return err
	}
	if opts.Keep {
		fmt.Fprintf(formatter.GetErrWriter(), "sandbox kept at %s\n", sb.Dir())
	}
	return nil
}

// configureShell applies the profile, then --output (if given explicitly),
// --set, --resource and --data, in that order.
func configureShell(sh *shell.Shell, opts *RunOptions, outputChanged bool) error {
	if opts.Profile != "" {
		p, err := config.LoadProfile(opts.Profile)
		if err != nil {
			return err
		}
		if err := sh.ApplyProfile(p); err != nil {
			return err
		}
		if outputChanged {
			if err := sh.SetOutputPolicy(shell.OutputPolicy(opts.Output)); err != nil {
				return err
			}
		}
	}

	for _, kv := range opts.Sets {
		key, value, err := parseAssignment("--set", kv)
		if err != nil {
			return err
		}
		if err := sh.SetProperty(key, value); err != nil {
			return err
		}
	}
	for _, kv := range opts.Resources {
		target, path, err := parseAssignment("--resource", kv)
		if err != nil {
			return err
		}
		if err := sh.AddResourceFile(target, path); err != nil {
			return err
		}
	}
	for _, kv := range opts.Data {
		target, data, err := parseAssignment("--data", kv)
		if err != nil {
			return err
		}
		if err := sh.AddResource(target, data); err != nil {
			return err
		}
	}
	return nil
}

// parseAssignment splits "key=value" at the first '='. The value may be
// empty; the key may not.
func parseAssignment(flag, s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("%s %q: expected key=value", flag, s)
	}
	return key, value, nil
}

// readScript returns the script from -e, stdin ("-") or a file. Exactly one
// source must be given.
func readScript(inline string, args []string, stdin io.Reader) (string, error) {
	switch {
	case inline != "" && len(args) > 0:
		return "", fmt.Errorf("use either --execute or a script file, not both")
	case inline != "":
		return inline, nil
	case len(args) == 0:
		return "", fmt.Errorf("no script: pass a file, - for stdin, or --execute")
	case args[0] == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read script: %w", err)
		}
		return string(data), nil
	}
}

// parentContext uses the command's context if available (for testing).
func parentContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
