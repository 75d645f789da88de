package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load reference data and rule tables and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			w := cmd.OutOrStdout()
			regions := a.Lookup.ListRegions()
			served := 0
			for _, r := range regions {
				if _, err := a.Lookup.FindDeliveryRecord(r.Name); err == nil {
					served++
				}
			}
			fmt.Fprintf(w, "reference data: %d wilayas from %s, %d with delivery prices\n", len(regions), a.Source, served)
			fmt.Fprintf(w, "rules: %d weight ranges, package types %v, delivery options %v\n",
				len(a.Tables.WeightRanges), a.Tables.PackageTypeKeys(), a.Tables.DeliveryOptionKeys())
			fmt.Fprintln(w, "ok")
			return nil
		},
	}
}
