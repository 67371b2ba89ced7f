// Package cli implements the citefix command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/citefix/internal/engine"
	"github.com/mesh-intelligence/citefix/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	localeDir string
	dataDir   string
	engine    string
	strict    bool
	verbose   bool
}

// app is the state shared by the commands of one root command.
type app struct {
	flags rootFlags
	cfg   *viper.Viper
	log   *zap.Logger
}

// NewRootCmd creates the top-level "citefix" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "citefix",
		Short: "Convert and run citation processor test fixtures",
		Long: "citefix converts legacy CSL test-suite fixtures to structured YAML documents\n" +
			"and runs fixtures against a citation processor, comparing the output\n" +
			"with the expected result.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: .citefix)")
	pf.StringVar(&a.flags.localeDir, "locale-dir", "", "locale cache directory (default: platform cache)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "run history directory (default: .citefix-db)")
	pf.StringVar(&a.flags.engine, "engine", engine.OutlineName, "engine to run fixtures with")
	pf.BoolVar(&a.flags.strict, "strict", true, "reject malformed fixtures instead of recovering")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newRunCmd(a))
	root.AddCommand(newToStructuredCmd(a))
	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newConvertDirCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newImportLocalesCmd(a))
	root.AddCommand(newHistoryCmd(a))

	return root
}

// setup builds the logger and loads config.yaml before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.log = newLogger(cmd.ErrOrStderr(), a.flags.verbose)

	if cmd.Name() == "version" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(err)
	}
	cfg, err := loadConfig(configDir, cmd.Root().PersistentFlags())
	if err != nil {
		return sysError(err)
	}
	a.cfg = cfg
	a.log.Debug("config loaded", zap.String("config_dir", configDir), zap.String("file", cfg.ConfigFileUsed()))
	return nil
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "citefix:", err)
		os.Exit(exitCode(err))
	}
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// exitCode maps a command error to an exit code. Errors without a code are
// usage errors from cobra.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}
