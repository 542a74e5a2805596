package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/watchbuyer/watchbuyer/internal/utils"
	"github.com/watchbuyer/watchbuyer/pkg/money"
	"github.com/watchbuyer/watchbuyer/pkg/pricing"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Compute a buy range from a market low, MSRP and brand discount",
	RunE: func(cmd *cobra.Command, args []string) error {
		lowest, err := parseDollars(cmd, "lowest")
		if err != nil {
			return err
		}
		msrp, err := parseDollars(cmd, "msrp")
		if err != nil {
			return err
		}
		discount, err := parsePercent(cmd, "discount")
		if err != nil {
			return err
		}

		t := pricing.ComputeBuyTargets(lowest, msrp, discount)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(t)
		}
		printTargets(t)
		return nil
	},
}

func printTargets(t pricing.BuyTargets) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Brand target\t%s\t\n", money.FormatUSD(t.BrandTargetCents))
	fmt.Fprintf(w, "Market low - $2,000\t%s\t\n", money.FormatUSD(t.SuggestedBuyMinus2000Cents))
	fmt.Fprintf(w, "Market low - 20%%\t%s\t\n", money.FormatUSD(t.SuggestedBuyMinus20PctCents))
	fmt.Fprintf(w, "Buy range\t%s - %s\t\n", money.FormatUSD(t.BuyRange[0]), money.FormatUSD(t.BuyRange[1]))
	w.Flush()
	if t.Inverted() {
		utils.Log.Warn("The market floor is above the brand target; the buy range is inverted.")
	}
}

func init() {
	rootCmd.AddCommand(targetsCmd)
	targetsCmd.Flags().String("lowest", "0", "Lowest market price in USD")
	targetsCmd.Flags().String("msrp", "0", "MSRP in USD")
	targetsCmd.Flags().String("discount", "0", "Brand discount in percent")
	targetsCmd.Flags().Bool("json", false, "Print targets as JSON")
}
