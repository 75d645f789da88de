package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRegionsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "regions",
		Short: "List all wilayas ordered by code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			list := a.Lookup.ListRegions()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tCOMMUNES")
			for _, r := range list {
				fmt.Fprintf(tw, "%02d\t%s\t%d\n", r.Code, r.Name, r.SubdivisionCount)
			}
			return tw.Flush()
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return c
}

func newRegionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "region <name>",
		Short: "Show one wilaya with its communes and delivery prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			detail, err := a.Lookup.GetRegion(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			out := map[string]any{
				"code":     detail.Code,
				"name":     detail.Name,
				"communes": detail.Subdivisions,
			}
			if d := detail.Delivery; d != nil {
				out["delivery"] = map[string]any{
					"home":           d.HomePrice.String(),
					"desk":           d.DeskPrice.String(),
					"desk_available": d.DeskAvailable(),
					"estimated_days": d.EstimatedDays,
				}
			} else {
				out["delivery"] = nil
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
