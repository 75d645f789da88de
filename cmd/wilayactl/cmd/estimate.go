package cmd

import (
	"github.com/spf13/cobra"

	"wilayasapi/internal/rate"
)

func newEstimateCmd(opts *rootOptions) *cobra.Command {
	var (
		wilaya      string
		weight      float64
		packageType string
		option      string
		quantity    int
		value       float64
		recurring   bool
	)
	c := &cobra.Command{
		Use:   "estimate",
		Short: "Price a delivery and print the itemized quote as JSON",
		Long: `Price a delivery with the loaded rule tables.

Examples:
  wilayactl estimate --wilaya Alger --weight 1.5
  wilayactl estimate --wilaya Setif --weight 12 --type fragile --quantity 20 --value 40000 --recurring`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			req := rate.Request{
				Destination:       wilaya,
				PackageType:       packageType,
				DeliveryOption:    option,
				RecurringCustomer: recurring,
			}
			if cmd.Flags().Changed("weight") {
				req.Weight = &weight
			}
			if cmd.Flags().Changed("quantity") {
				req.Quantity = &quantity
			}
			if cmd.Flags().Changed("value") {
				req.DeclaredValue = &value
			}
			q, err := a.Engine.Estimate(req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), q)
		},
	}
	c.Flags().StringVarP(&wilaya, "wilaya", "w", "", "destination wilaya name")
	c.Flags().Float64Var(&weight, "weight", 0, "weight in kg per unit")
	c.Flags().StringVarP(&packageType, "type", "t", "", "package type (default standard)")
	c.Flags().StringVarP(&option, "option", "o", "", "delivery option (default home)")
	c.Flags().IntVarP(&quantity, "quantity", "q", 1, "number of identical packages")
	c.Flags().Float64Var(&value, "value", 0, "declared value for insurance")
	c.Flags().BoolVar(&recurring, "recurring", false, "apply the recurring customer discount")
	return c
}
