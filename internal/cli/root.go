// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-josekit.
//
// go-josekit is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-josekit/internal/config"
	"github.com/jeremyhahn/go-josekit/pkg/jose"
	"github.com/jeremyhahn/go-josekit/pkg/logging"
	"github.com/jeremyhahn/go-josekit/pkg/result"
)

// GlobalFlags holds the persistent flags shared by every command
type GlobalFlags struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// Output overrides output.format from the configuration (text, json)
	Output string

	// Verbose forces debug logging to stderr
	Verbose bool
}

// app is the state built once flags are parsed.
type app struct {
	cfg     *config.Config
	engine  *jose.Engine
	logger  logging.Logger
	printer *Printer
	stdin   io.Reader
}

// Execute runs the josekit command line and returns the process exit code.
func Execute() int {
	return Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// Run executes the command line given by args.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := &GlobalFlags{}
	a := &app{stdin: stdin}
	cmd := newRootCmd(flags, a)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		format := flags.Output
		if a.cfg != nil {
			format = a.cfg.Output.Format
		}
		if format == "" {
			format = string(OutputFormatText)
		}
		_ = NewPrinter(format, stderr).PrintError(err) // best-effort
		return 1
	}
	return 0
}

func newRootCmd(flags *GlobalFlags, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "josekit",
		Short: "josekit - JSON Object Signing and Encryption toolkit",
		Long: `josekit generates JSON Web Keys and produces and consumes JWE, JWS
and JWT messages in the compact, flattened and general serializations.

Configuration is read from --config, then JOSEKIT_* environment
variables override it, e.g. JOSEKIT_LOGGING_LEVEL=debug or
JOSEKIT_POLICY_SIGNATURE=ES256,EdDSA.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "",
		"config file (YAML)")
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", "",
		"output format (text, json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false,
		"log every operation to stderr")

	cmd.AddCommand(newVersionCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newJWKCmd(a))
	cmd.AddCommand(newAEADCmd(a))
	cmd.AddCommand(newJWECmd(a))
	cmd.AddCommand(newJWSCmd(a))
	cmd.AddCommand(newJWTCmd(a))
	return cmd
}

func (a *app) init(flags *GlobalFlags, stdout, stderr io.Writer) error {
	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		return err
	}
	if flags.Output != "" {
		cfg.Output.Format = strings.ToLower(flags.Output)
	}
	if flags.Verbose {
		cfg.Logging.Level = logging.LevelDebug.String()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := cfg.Logger(stderr)
	if err != nil {
		return err
	}
	engine, err := cfg.Engine(logger)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.engine = engine
	a.printer = NewPrinter(cfg.Output.Format, stdout)
	return nil
}

// check turns an engine result into an error carrying the result code.
func check(out *result.JSONString, code result.Code, err error) (*result.JSONString, error) {
	if err != nil {
		return nil, fmt.Errorf("%s: %w", code, err)
	}
	return out, nil
}

// print checks an engine result and prints it.
func (a *app) print(out *result.JSONString, code result.Code, err error) error {
	out, err = check(out, code, err)
	if err != nil {
		return err
	}
	return a.printer.PrintResult(out)
}

// readInput reads path, or stdin when path is empty or "-".
func (a *app) readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(a.stdin)
	}
	// #nosec G304 - path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// readFile reads a required file flag.
func (a *app) readFile(flag, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("--%s is required", flag)
	}
	return a.readInput(path)
}
