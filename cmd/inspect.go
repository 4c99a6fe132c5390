package cmd

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/offline-gdb-converter/internal/geodatabase"
	"github.com/ginjaninja78/offline-gdb-converter/internal/logging"
)

// newInspectCmd builds the 'inspect' command, which lists the datasets of a
// geodatabase with their record counts.
//
// OUTPUT:
//   C:/Temp/Collector_Offline_Tool/CollOuput.gdb (file, {0E3B...})
//   Parcels                        esriDTFeatureClass  DEFAULTS             7 fields       10 records
func newInspectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect PATH",
		Short: "List the datasets of a geodatabase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return errors.Annotate(err, "loading configuration")
			}
			closer, err := logging.Setup(cfg.LogLevel, cfg.LogFile, cmd.ErrOrStderr())
			if err != nil {
				return errors.Annotate(err, "setting up logging")
			}
			defer closer.Close()

			gdb, err := geodatabase.Open(args[0])
			if err != nil {
				return errors.Trace(err)
			}
			defer gdb.Close()

			datasets, err := gdb.Datasets()
			if err != nil {
				return errors.Trace(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s, %s)\n", gdb.Path(), gdb.Kind(), gdb.ID())
			for _, ds := range datasets {
				n, err := gdb.Count(ds.Name)
				if err != nil {
					return errors.Trace(err)
				}
				keyword, err := gdb.ConfigKeyword(ds.Name)
				if err != nil {
					return errors.Trace(err)
				}
				fmt.Fprintf(out, "%-30s %-19s %-19s %2d fields %8d records\n", ds.Name, ds.Kind, keyword, len(ds.Fields), n)
			}
			return nil
		},
	}
}
