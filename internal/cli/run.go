package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/citefix/internal/harness"
	"github.com/mesh-intelligence/citefix/pkg/fixture"
)

// classify attaches an exit code to a harness error: broken fixtures and
// engine failures are the user's, everything else is the system's.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pe *fixture.ParseError
	if errors.As(err, &pe) {
		return userError(err)
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	return sysError(err)
}

func newRunCmd(a *app) *cobra.Command {
	var record, replay bool
	cmd := &cobra.Command{
		Use:   "run <fixture.yml>",
		Short: "Run a structured fixture and print the result",
		Long: "Run a structured fixture against the configured engine. Diagnostics the\n" +
			"engine logs are printed before the result. Given a legacy .txt fixture,\n" +
			"run prints its structured form instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, closeFn, err := a.driver(cmd.OutOrStdout(), driverOptions{
				record:     record,
				replay:     replay,
				needEngine: !fixture.IsLegacyPath(args[0]),
			})
			if err != nil {
				return err
			}
			defer closeFn()

			// A malformed fixture and an engine failure both exit 1.
			if err := d.Run(args[0]); err != nil {
				return userError(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "record the run in the history store")
	cmd.Flags().BoolVar(&replay, "replay", false, "read items and locales from the store instead of the fixture")
	return cmd
}

func newToStructuredCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "to-structured <fixture.txt>",
		Short: "Convert a legacy fixture and print the structured document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := a.driver(cmd.OutOrStdout(), driverOptions{})
			if err != nil {
				return err
			}
			return classify(d.Convert(args[0]))
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var record, replay bool
	cmd := &cobra.Command{
		Use:   "check <fixture>...",
		Short: "Run fixtures and compare the output with their expected results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, closeFn, err := a.driver(cmd.OutOrStdout(), driverOptions{
				record:     record,
				replay:     replay,
				needEngine: true,
			})
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				v, err := d.Check(path)
				if err != nil {
					a.log.Error("check failed", zap.String("fixture", path), zap.Error(err))
					v = harness.Verdict{Name: path, Err: err}
				}
				if err := harness.WriteVerdict(out, v); err != nil {
					return sysError(err)
				}
				if !v.Passed {
					failed++
				}
			}
			fmt.Fprintf(out, "%d passed, %d failed\n", len(args)-failed, failed)
			if failed > 0 {
				return userError(fmt.Errorf("%d of %d fixtures failed", failed, len(args)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "record the runs in the history store")
	cmd.Flags().BoolVar(&replay, "replay", false, "read items and locales from the store instead of the fixture")
	return cmd
}

func newConvertDirCmd(a *app) *cobra.Command {
	var skip []string
	cmd := &cobra.Command{
		Use:   "convert-dir <src> <dst>",
		Short: "Convert every legacy fixture in a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := a.driver(cmd.OutOrStdout(), driverOptions{})
			if err != nil {
				return err
			}
			skip = append(skip, a.cfg.GetStringSlice(cfgKeySkip)...)
			n, err := d.ConvertDir(args[0], args[1], skip)
			if err != nil {
				return classify(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted %d fixtures into %s\n", n, args[1])
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "fixture names to leave out")
	return cmd
}
