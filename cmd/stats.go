package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about the watches and evaluations in the database.",
	Long:  "Prints statistics about the watches and evaluations in the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(contextFor(cmd))
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "BRAND\tWATCHES\tEVALUATIONS\t")

		var totalWatches, totalEvaluations int
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%d\t\n", s.Brand, s.WatchCount, s.EvaluationCount)
			totalWatches += s.WatchCount
			totalEvaluations += s.EvaluationCount
		}

		fmt.Fprintln(w, " \t \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t%d\t\n", totalWatches, totalEvaluations)

		w.Flush()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
