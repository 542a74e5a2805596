package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/watchbuyer/watchbuyer/pkg/marketplace"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace/ebay"
)

var ebayCmd = &cobra.Command{
	Use:   "ebay",
	Short: "Look up the cheapest matching eBay listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newEBay()
		if client == nil {
			return ebay.ErrMissingCredentials
		}
		brand, _ := cmd.Flags().GetString("brand")
		reference, _ := cmd.Flags().GetString("reference")
		phrases, _ := cmd.Flags().GetStringSlice("phrases")
		country, _ := cmd.Flags().GetString("country")
		if country == "" {
			country = viper.GetString("ebay.country")
		}

		ctx := contextFor(cmd)
		if err := client.Authenticate(ctx, ebayAuth()); err != nil {
			return fmt.Errorf("ebay authentication failed: %w", err)
		}
		res, err := client.Lowest(ctx, marketplace.Query{
			Brand:           brand,
			Reference:       reference,
			Country:         country,
			RequiredPhrases: phrases,
		})
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if res == nil {
			if asJSON {
				return printJSON(nil)
			}
			fmt.Println("No eBay listings matched.")
			return nil
		}
		if asJSON {
			return printJSON(res)
		}
		printResults(*res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ebayCmd)
	ebayCmd.Flags().String("brand", "", "Watch brand")
	ebayCmd.Flags().String("reference", "", "Reference number")
	ebayCmd.Flags().String("country", "", "Item location country (default from ebay.country)")
	ebayCmd.Flags().StringSlice("phrases", nil, "Phrases every listing must mention (default: box,papers)")
	ebayCmd.Flags().Bool("json", false, "Print the result as JSON")
	ebayCmd.MarkFlagRequired("brand")
}
