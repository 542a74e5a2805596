package cmd

import (
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch a search results page and extract qualifying listings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		render, _ := cmd.Flags().GetBool("render")
		src, err := newChrono24(render)
		if err != nil {
			return err
		}
		listings, err := src.FetchAndParse(contextFor(cmd), args[0])
		if err != nil {
			return err
		}
		return outputListings(cmd, args[0], listings)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().Bool("render", false, "Render the page in headless Chrome before extracting")
	addListingOutputFlags(fetchCmd)
}
