package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/citefix/internal/paths"
	"github.com/mesh-intelligence/citefix/internal/sqlite"
	"github.com/mesh-intelligence/citefix/pkg/fixture"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize citefix configuration and run history storage",
		Long:  "Create the configuration directory with a default config.yaml, if missing,\nand the data directory with an empty database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return sysError(err)
			}
			path := filepath.Join(configDir, configFileExt)

			st, err := a.openStore()
			if err != nil {
				return sysError(fmt.Errorf("initialize storage: %w", err))
			}
			if err := st.Close(); err != nil {
				return sysError(fmt.Errorf("finalize storage: %w", err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "citefix initialized\nconfig: %s\ndatabase: %s\n", path, st.Path())
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <fixture>...",
		Short: "Record the input items of fixtures in the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return sysError(err)
			}
			defer st.Close()

			opts := a.parseOptions()
			for _, path := range args {
				f, err := fixture.Load(path, opts)
				if err != nil {
					return userError(err)
				}
				n, err := st.ImportFixture(f)
				if err != nil {
					return sysError(err)
				}
				a.log.Debug("imported fixture", zap.String("fixture", path), zap.Int("items", n))
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items\n", sqlite.FixtureKey(path), n)
			}
			return nil
		},
	}
}

func newImportLocalesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-locales [dir]",
		Short: "Copy locale files into the store",
		Long:  "Copy every locales-<tag>.xml in dir, or in the locale cache directory, into the store.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) == 1 {
				dir = args[0]
			} else {
				d, err := a.localeDir()
				if err != nil {
					return sysError(err)
				}
				dir = d
			}

			st, err := a.openStore()
			if err != nil {
				return sysError(err)
			}
			defer st.Close()

			n, err := st.ImportLocales(dir)
			if err != nil {
				return sysError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d locales from %s\n", n, dir)
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit    int
		jsonMode bool
		export   string
	)
	cmd := &cobra.Command{
		Use:   "history [fixture]",
		Short: "List recorded runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}

			st, err := a.openStore()
			if err != nil {
				return sysError(err)
			}
			defer st.Close()

			runs, err := st.Runs(name, limit)
			if err != nil {
				return sysError(err)
			}

			out := cmd.OutOrStdout()
			switch {
			case export != "":
				if err := sqlite.ExportRuns(export, runs); err != nil {
					return sysError(err)
				}
				fmt.Fprintf(out, "exported %d runs to %s\n", len(runs), export)
			case jsonMode:
				if runs == nil {
					runs = []sqlite.Run{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(runs); err != nil {
					return sysError(err)
				}
			default:
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tCREATED\tFIXTURE\tENGINE\tSTATUS")
				for _, r := range runs {
					status := "PASS"
					if !r.Passed {
						status = "FAIL"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Fixture, r.Engine, status)
				}
				if err := tw.Flush(); err != nil {
					return sysError(err)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "output as JSON")
	cmd.Flags().StringVar(&export, "export", "", "write the runs to a JSON Lines file")
	return cmd
}
