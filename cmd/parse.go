package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watchbuyer/watchbuyer/internal/utils"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace/chrono24"
)

// parseCmd extracts listings from a saved search results page.
var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Extract qualifying listings from an HTML file (or stdin)",
	Long: `Extract US listings that ship with box and papers from a saved marketplace
search results page. Reads from stdin when no file is given or the file is "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data  []byte
			err   error
			label = "stdin"
		)
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
			label = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		if err != nil {
			return fmt.Errorf("reading html: %w", err)
		}

		engine, err := newEngine()
		if err != nil {
			return err
		}
		base, _ := cmd.Flags().GetString("base")
		rep := engine.Extract(string(data), base)
		utils.Log.Debugf("Examined %d candidates, rejected %v, price strategies %v", rep.Candidates, rep.Rejected, rep.PriceStrategies)

		return outputListings(cmd, label, rep.Listings)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().String("base", chrono24.BaseURL, "Base URL for resolving relative listing links")
	addListingOutputFlags(parseCmd)
}
