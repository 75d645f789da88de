// Package cmd provides the CLI commands for wilayactl.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wilayasapi/internal/app"
	"wilayasapi/internal/config"
	"wilayasapi/internal/logging"
)

const version = "1.0.0"

type rootOptions struct {
	dataDir     string
	rulesPath   string
	databaseURL string
	currency    string
	verbose     bool
}

// NewRootCmd builds the command tree. Flag defaults come from the same
// environment the API server reads.
func NewRootCmd() *cobra.Command {
	cfg := config.Load()
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "wilayactl",
		Short: "Inspect Algerian wilaya reference data and price deliveries",
		Long: `wilayactl works against the same reference data and rule tables as the
API server, without starting it.

Examples:
  wilayactl regions
  wilayactl region "Tizi Ouzou"
  wilayactl estimate --wilaya Oran --weight 3 --option bureau
  wilayactl validate --rules ./delivery_estimation.json`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", cfg.DataDir, "directory holding the reference JSON documents (default embedded)")
	root.PersistentFlags().StringVar(&opts.rulesPath, "rules", cfg.RulesPath, "rule document path (default embedded)")
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", cfg.DatabaseURL, "read reference data from Postgres")
	root.PersistentFlags().StringVar(&opts.currency, "currency", cfg.Currency, "currency label printed on quotes")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newRegionsCmd(opts),
		newRegionCmd(opts),
		newEstimateCmd(opts),
		newValidateCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "wilayactl version %s\n", version)
			},
		},
	)
	return root
}

// Execute runs the CLI
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) load(cmd *cobra.Command) (*app.App, error) {
	log := zap.NewNop()
	if o.verbose {
		l, err := logging.New(logging.Config{Level: "debug", Format: "console"})
		if err != nil {
			return nil, err
		}
		log = l
	}
	return app.Load(cmd.Context(), app.Options{
		DatabaseURL: o.databaseURL,
		DataDir:     o.dataDir,
		RulesPath:   o.rulesPath,
		Currency:    o.currency,
	}, log)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
