package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/watchbuyer/watchbuyer/internal/utils"
	"github.com/watchbuyer/watchbuyer/pkg/export"
	"github.com/watchbuyer/watchbuyer/pkg/extract"
	"github.com/watchbuyer/watchbuyer/pkg/fetch"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace/chrono24"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace/ebay"
	"github.com/watchbuyer/watchbuyer/pkg/money"
	"github.com/watchbuyer/watchbuyer/pkg/storage"
)

// newEngine returns the default engine, or one built from the configured
// vocabulary file.
func newEngine() (*extract.Engine, error) {
	path := viper.GetString("extract.vocabulary")
	if path == "" {
		return extract.Default(), nil
	}
	v, err := extract.LoadVocabulary(path)
	if err != nil {
		return nil, err
	}
	utils.Log.Debugf("Loaded vocabulary from %s", path)
	return extract.New(v), nil
}

func newFetcher(render bool) (fetch.Fetcher, error) {
	if render || viper.GetBool("fetch.render") {
		return fetch.NewBrowserFetcher(fetch.BrowserConfig{}), nil
	}
	interval, err := time.ParseDuration(viper.GetString("fetch.min_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid fetch.min_interval: %w", err)
	}
	return fetch.NewHTTPFetcher(nil, fetch.NewLimiter(interval)), nil
}

func newChrono24(render bool) (*chrono24.Source, error) {
	engine, err := newEngine()
	if err != nil {
		return nil, err
	}
	fetcher, err := newFetcher(render)
	if err != nil {
		return nil, err
	}
	src := chrono24.New(fetcher)
	src.Engine = engine
	src.Log = utils.Log
	return src, nil
}

func ebayAuth() marketplace.AuthConfig {
	return marketplace.AuthConfig{
		ClientID:     viper.GetString("ebay.client_id"),
		ClientSecret: viper.GetString("ebay.client_secret"),
	}
}

// newEBay returns nil when no credentials are configured.
func newEBay() *ebay.Client {
	auth := ebayAuth()
	if auth.ClientID == "" || auth.ClientSecret == "" {
		return nil
	}
	c := ebay.NewClient(nil)
	if u := viper.GetString("ebay.api_url"); u != "" {
		c.APIURL = u
	}
	if u := viper.GetString("ebay.token_url"); u != "" {
		c.TokenURL = u
	}
	return c
}

// sources lists the marketplaces an evaluation queries, eBay first.
func sources(render bool) ([]marketplace.Source, error) {
	var out []marketplace.Source
	if c := newEBay(); c != nil {
		out = append(out, c)
	} else {
		utils.Log.Info("Skipping eBay: ebay.client_id or ebay.client_secret not found in config.")
	}
	src, err := newChrono24(render)
	if err != nil {
		return nil, err
	}
	return append(out, src), nil
}

func dbPathFromConfig() string {
	return viper.GetString("db.path")
}

func openDB() (*storage.DB, error) {
	path, err := utils.GetAbsDBPath(dbPathFromConfig())
	if err != nil {
		return nil, err
	}
	utils.Log.Debugf("Using database %s", path)
	return storage.Open(path)
}

// withWriteDB opens the store under the writer lock, held on behalf of cmd,
// and runs fn.
func withWriteDB(cmd *cobra.Command, fn func(db *storage.DB) error) error {
	lock, err := utils.NewDBLock(dbPathFromConfig(), cmd.CommandPath())
	if err != nil {
		return err
	}
	if err := lock.Lock(contextFor(cmd)); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			utils.Log.Warn(err)
		}
	}()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

// parseDollars reads a dollar flag such as "4550" or "4,550.00".
func parseDollars(cmd *cobra.Command, name string) (int64, error) {
	raw, _ := cmd.Flags().GetString(name)
	cents, err := money.DollarsToCents(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return cents, nil
}

func parsePercent(cmd *cobra.Command, name string) (int64, error) {
	raw, _ := cmd.Flags().GetString(name)
	bps, err := money.PercentToBasisPoints(raw)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return bps, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printListings(listings []extract.Listing) {
	if len(listings) == 0 {
		fmt.Println("No US + Box + Papers listings found.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PRICE\tLOCATION\tBOX\tPAPERS\tTITLE\tURL\t")
	for _, l := range listings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			money.FormatUSD(l.PriceCents), l.Location, yesNo(l.HasBox), yesNo(l.HasPapers), l.Title, l.URL)
	}
	w.Flush()
}

func printResults(results ...marketplace.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tLOWEST\tCURRENCY\tLOCATION\tSAMPLES\tURL\t")
	for _, res := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t\n",
			res.Source, money.FormatUSD(res.LowestCents), res.Currency, res.Location, res.SampleCount, res.URL)
	}
	w.Flush()
}

// outputListings prints listings (or JSON with --json) and writes the export
// requested with --export. An --export value of csv, json or xlsx picks a
// generated file name in the current directory.
func outputListings(cmd *cobra.Command, label string, listings []extract.Listing) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		if listings == nil {
			listings = []extract.Listing{}
		}
		if err := printJSON(listings); err != nil {
			return err
		}
	} else {
		printListings(listings)
	}

	target, _ := cmd.Flags().GetString("export")
	if target == "" {
		return nil
	}
	switch strings.ToLower(target) {
	case "csv", "json", "xlsx":
		target = export.BuildExportPath(".", label, strings.ToLower(target), time.Now())
	}
	if err := export.Export(target, listings); err != nil {
		return err
	}
	utils.Log.Infof("Exported %d listings to %s", len(listings), target)
	return nil
}

func addListingOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Print listings as JSON")
	cmd.Flags().String("export", "", "Write listings to a .csv, .json or .xlsx file (or just csv|json|xlsx for a generated name)")
}

func contextFor(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
