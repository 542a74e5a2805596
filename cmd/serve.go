package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/watchbuyer/watchbuyer/internal/server"
	"github.com/watchbuyer/watchbuyer/internal/utils"
	"github.com/watchbuyer/watchbuyer/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the evaluation web UI and JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		render, _ := cmd.Flags().GetBool("render")
		src, err := newChrono24(render)
		if err != nil {
			return err
		}

		var db *storage.DB
		if noDB, _ := cmd.Flags().GetBool("no-db"); !noDB {
			db, err = openDB()
			if err != nil {
				return err
			}
			defer db.Close()
		}

		client := newEBay()
		if client == nil {
			utils.Log.Warn("eBay credentials not configured; /api/price/ebay will report an error and evaluations will use Chrono24 only.")
		}

		listen := viper.GetString("server.listen")
		if cmd.Flags().Changed("listen") {
			listen, _ = cmd.Flags().GetString("listen")
		}

		s := server.New(server.Config{
			DB:       db,
			Chrono24: src,
			EBay:     client,
			EBayAuth: ebayAuth(),
			Username: viper.GetString("server.username"),
			Password: viper.GetString("server.password"),
			Log:      utils.Log,
		})
		return s.Start(listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address (default from server.listen)")
	serveCmd.Flags().Bool("render", false, "Render Chrono24 pages in headless Chrome")
	serveCmd.Flags().Bool("no-db", false, "Run without the SQLite store (no watches or history)")
}
