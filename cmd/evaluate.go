package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/watchbuyer/watchbuyer/internal/utils"
	"github.com/watchbuyer/watchbuyer/pkg/evaluate"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace"
	"github.com/watchbuyer/watchbuyer/pkg/money"
	"github.com/watchbuyer/watchbuyer/pkg/storage"
)

// evaluateCmd implements: watchbuyer evaluate
//
//	--brand/--reference   Watch to price (or --all for every stored watch)
//	--msrp/--discount     Override the stored MSRP (USD) and brand discount (%)
//	--chrono24-url        Chrono24 page to read instead of a generated search
//	--html                Saved Chrono24 page to read instead of fetching
//	--record              Save the decision to the history table
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Price a watch across marketplaces and suggest a buy range",
	RunE: func(cmd *cobra.Command, args []string) error {
		render, _ := cmd.Flags().GetBool("render")
		srcs, err := sources(render)
		if err != nil {
			return err
		}
		if all, _ := cmd.Flags().GetBool("all"); all {
			return runBatchEvaluation(cmd, srcs)
		}
		return runEvaluation(cmd, srcs)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().String("brand", "", "Watch brand")
	evaluateCmd.Flags().String("reference", "", "Reference number")
	evaluateCmd.Flags().String("country", "", "Listing country (default from ebay.country)")
	evaluateCmd.Flags().String("msrp", "", "MSRP in USD (default: stored watch)")
	evaluateCmd.Flags().String("discount", "", "Brand discount in percent (default: stored watch)")
	evaluateCmd.Flags().String("chrono24-url", "", "Chrono24 search or listing page URL")
	evaluateCmd.Flags().String("html", "", "Saved Chrono24 results page to parse instead of fetching")
	evaluateCmd.Flags().Bool("render", false, "Render Chrono24 pages in headless Chrome")
	evaluateCmd.Flags().Bool("record", false, "Record the decision in the history table")
	evaluateCmd.Flags().Bool("all", false, "Evaluate every stored watch")
	evaluateCmd.Flags().Int("concurrency", 2, "Number of watches evaluated at once with --all")
	evaluateCmd.Flags().Bool("json", false, "Print the decision as JSON")
}

func runEvaluation(cmd *cobra.Command, srcs []marketplace.Source) error {
	ctx := contextFor(cmd)
	brand, _ := cmd.Flags().GetString("brand")
	reference, _ := cmd.Flags().GetString("reference")
	if brand == "" || reference == "" {
		return errors.New("--brand and --reference are required (or use --all)")
	}
	country, _ := cmd.Flags().GetString("country")
	if country == "" {
		country = viper.GetString("ebay.country")
	}
	pageURL, _ := cmd.Flags().GetString("chrono24-url")
	q := marketplace.Query{Brand: brand, Reference: reference, Country: country, PageURL: pageURL}
	if path, _ := cmd.Flags().GetString("html"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading html: %w", err)
		}
		q.PageHTML = string(data)
	}

	msrp, discount, err := evaluationTargets(ctx, cmd, brand, reference)
	if err != nil {
		return err
	}

	d := evaluate.Run(ctx, evaluate.Config{
		Sources:          srcs,
		Auth:             ebayAuth(),
		Query:            q,
		MSRPCents:        msrp,
		BrandDiscountBps: discount,
		Log:              utils.Log,
	})

	if record, _ := cmd.Flags().GetBool("record"); record {
		err := withWriteDB(cmd, func(db *storage.DB) error {
			rec, err := db.RecordEvaluation(ctx, d.Evaluation(q))
			if err == nil {
				utils.Log.Debugf("Recorded evaluation #%d", rec.ID)
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("recording evaluation: %w", err)
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(d)
	}
	printDecision(d)
	return nil
}

// evaluationTargets reads MSRP and discount from flags, filling in whatever
// was not given from the stored watch.
func evaluationTargets(ctx context.Context, cmd *cobra.Command, brand, reference string) (int64, int64, error) {
	msrpSet := cmd.Flags().Changed("msrp")
	discountSet := cmd.Flags().Changed("discount")

	var msrp, discount int64
	if !msrpSet || !discountSet {
		db, err := openDB()
		if err != nil {
			return 0, 0, err
		}
		defer db.Close()
		w, err := db.GetWatch(ctx, brand, reference)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return 0, 0, fmt.Errorf("%s %s is not a stored watch; pass --msrp and --discount or add it with 'watchbuyer watch add'", brand, reference)
			}
			return 0, 0, err
		}
		msrp, discount = w.MSRPCents, w.BrandDiscountBps
	}

	var err error
	if msrpSet {
		if msrp, err = parseDollars(cmd, "msrp"); err != nil {
			return 0, 0, err
		}
	}
	if discountSet {
		if discount, err = parsePercent(cmd, "discount"); err != nil {
			return 0, 0, err
		}
	}
	return msrp, discount, nil
}

func runBatchEvaluation(cmd *cobra.Command, srcs []marketplace.Source) error {
	ctx := contextFor(cmd)
	brand, _ := cmd.Flags().GetString("brand")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	country, _ := cmd.Flags().GetString("country")
	if country == "" {
		country = viper.GetString("ebay.country")
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	watches, err := db.ListWatches(ctx, brand)
	db.Close()
	if err != nil {
		return err
	}
	if len(watches) == 0 {
		utils.Log.Info("No stored watches. Add one with 'watchbuyer watch add' or 'watchbuyer watch seed'.")
		return nil
	}

	jobs := make([]evaluate.Job, len(watches))
	for i, w := range watches {
		jobs[i] = evaluate.Job{
			Query:            marketplace.Query{Brand: w.Brand, Reference: w.Reference, Country: country},
			MSRPCents:        w.MSRPCents,
			BrandDiscountBps: w.BrandDiscountBps,
		}
	}

	decisions := evaluate.RunBatch(ctx, evaluate.BatchConfig{
		Sources:     srcs,
		Auth:        ebayAuth(),
		Jobs:        jobs,
		Concurrency: concurrency,
		Log:         utils.Log,
		OnJobDone: func(i int, d *evaluate.Decision) {
			utils.Log.Infof("Evaluated %s (%d/%d sources failed)", jobs[i].Query.Keywords(), len(d.Errors), len(srcs))
		},
	})

	if record, _ := cmd.Flags().GetBool("record"); record {
		err := withWriteDB(cmd, func(db *storage.DB) error {
			for i, d := range decisions {
				if _, err := db.RecordEvaluation(ctx, d.Evaluation(jobs[i].Query)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("recording evaluations: %w", err)
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(decisions)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "BRAND\tREFERENCE\tLOWEST\tSOURCE\tBUY RANGE\tBRAND TARGET\tERRORS\t")
	for i, d := range decisions {
		lowest, source := "-", "-"
		if d.Lowest != nil {
			lowest, source = money.FormatUSD(d.Lowest.LowestCents), d.Lowest.Source
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s - %s\t%s\t%d\t\n",
			jobs[i].Query.Brand, jobs[i].Query.Reference, lowest, source,
			money.FormatUSD(d.BuyRange[0]), money.FormatUSD(d.BuyRange[1]),
			money.FormatUSD(d.BrandTargetCents), len(d.Errors))
	}
	w.Flush()
	return nil
}

func printDecision(d *evaluate.Decision) {
	if len(d.Market) == 0 {
		fmt.Println("No qualifying market listings found.")
	} else {
		printResults(d.Market...)
	}
	for _, e := range d.Errors {
		utils.Log.Errorf("%s: %s", e.Source, e.Message)
	}
	fmt.Println()
	printTargets(d.BuyTargets)
}
