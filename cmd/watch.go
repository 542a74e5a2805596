package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/watchbuyer/watchbuyer/internal/utils"
	"github.com/watchbuyer/watchbuyer/pkg/money"
	"github.com/watchbuyer/watchbuyer/pkg/storage"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage the watches you track",
}

var watchAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a watch, or update the MSRP and discount of an existing one",
	RunE: func(cmd *cobra.Command, args []string) error {
		brand, _ := cmd.Flags().GetString("brand")
		reference, _ := cmd.Flags().GetString("reference")
		msrp, err := parseDollars(cmd, "msrp")
		if err != nil {
			return err
		}
		discount, err := parsePercent(cmd, "discount")
		if err != nil {
			return err
		}

		return withWriteDB(cmd, func(db *storage.DB) error {
			w, err := db.UpsertWatch(contextFor(cmd), storage.Watch{
				Brand:            brand,
				Reference:        reference,
				MSRPCents:        msrp,
				BrandDiscountBps: discount,
			})
			if err != nil {
				return err
			}
			utils.Log.Infof("Saved watch #%d: %s %s", w.ID, w.Brand, w.Reference)
			return nil
		})
	},
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored watches",
	RunE: func(cmd *cobra.Command, args []string) error {
		brand, _ := cmd.Flags().GetString("brand")
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		watches, err := db.ListWatches(contextFor(cmd), brand)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if watches == nil {
				watches = []storage.Watch{}
			}
			return printJSON(watches)
		}
		if len(watches) == 0 {
			fmt.Println("No watches stored.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tBRAND\tREFERENCE\tMSRP\tDISCOUNT\t")
		for _, watch := range watches {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f%%\t\n",
				watch.ID, watch.Brand, watch.Reference, money.FormatUSD(watch.MSRPCents), float64(watch.BrandDiscountBps)/100)
		}
		w.Flush()
		return nil
	},
}

var watchRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a stored watch (its history is kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid watch id %q", args[0])
		}
		return withWriteDB(cmd, func(db *storage.DB) error {
			if err := db.DeleteWatch(contextFor(cmd), id); err != nil {
				return fmt.Errorf("removing watch #%d: %w", id, err)
			}
			utils.Log.Infof("Removed watch #%d", id)
			return nil
		})
	},
}

var watchSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Store the default Tudor reference",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWriteDB(cmd, func(db *storage.DB) error {
			w, err := db.SeedDefaults(contextFor(cmd))
			if err != nil {
				return err
			}
			utils.Log.Infof("Seeded watch #%d: %s %s", w.ID, w.Brand, w.Reference)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.AddCommand(watchAddCmd, watchListCmd, watchRmCmd, watchSeedCmd)

	watchAddCmd.Flags().String("brand", "", "Watch brand")
	watchAddCmd.Flags().String("reference", "", "Reference number")
	watchAddCmd.Flags().String("msrp", "0", "MSRP in USD")
	watchAddCmd.Flags().String("discount", "0", "Typical brand discount in percent")
	watchAddCmd.MarkFlagRequired("brand")
	watchAddCmd.MarkFlagRequired("reference")
	watchAddCmd.MarkFlagRequired("msrp")

	watchListCmd.Flags().String("brand", "", "Only list watches of this brand")
	watchListCmd.Flags().Bool("json", false, "Print watches as JSON")
}
