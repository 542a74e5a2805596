package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchbuyer/watchbuyer/pkg/money"
	"github.com/watchbuyer/watchbuyer/pkg/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded evaluations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		brand, _ := cmd.Flags().GetString("brand")
		reference, _ := cmd.Flags().GetString("reference")
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		evals, err := db.ListRecentEvaluations(contextFor(cmd), storage.HistoryOptions{
			Brand:     brand,
			Reference: reference,
			Limit:     limit,
		})
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if evals == nil {
				evals = []storage.Evaluation{}
			}
			return printJSON(evals)
		}
		if len(evals) == 0 {
			fmt.Println("No evaluations recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "WHEN\tBRAND\tREFERENCE\tLOWEST\tSOURCE\tBUY RANGE\tBRAND TARGET\tERRORS\t")
		for _, e := range evals {
			source := e.LowestSource
			if source == "" {
				source = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s - %s\t%s\t%d\t\n",
				e.OccurredAt.Local().Format(time.DateTime), e.Brand, e.Reference,
				money.FormatUSD(e.LowestCents), source,
				money.FormatUSD(e.RangeLowCents), money.FormatUSD(e.RangeHighCents),
				money.FormatUSD(e.BrandTargetCents), e.SourceErrors)
		}
		w.Flush()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("brand", "", "Only show this brand")
	historyCmd.Flags().String("reference", "", "Only show this reference")
	historyCmd.Flags().Int("limit", 50, "Maximum number of evaluations to show")
	historyCmd.Flags().Bool("json", false, "Print evaluations as JSON")
}
