package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/watchbuyer/watchbuyer/internal/utils"
	"github.com/watchbuyer/watchbuyer/pkg/whttp"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "watchbuyer",
	Short: "Price luxury watches from marketplace listings and suggest what to pay.",
	Long: `watchbuyer finds the cheapest US listing that ships with box and papers on
Chrono24 and eBay, then turns it into a suggested buy range using the MSRP and
your usual brand discount.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.watchbuyer.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/watchbuyer/watchbuyer.sqlite)")
	rootCmd.PersistentFlags().String("vocabulary", "", "YAML file overriding the extraction vocabulary")
	viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("dbpath"))
	viper.BindPFlag("extract.vocabulary", rootCmd.PersistentFlags().Lookup("vocabulary"))
}

func setDefaults() {
	viper.SetDefault("ebay.client_id", "")
	viper.SetDefault("ebay.client_secret", "")
	viper.SetDefault("ebay.api_url", "")
	viper.SetDefault("ebay.token_url", "")
	viper.SetDefault("ebay.country", "US")
	viper.SetDefault("http.retries", 0)
	viper.SetDefault("fetch.render", false)
	viper.SetDefault("fetch.min_interval", "0s")
	viper.SetDefault("extract.vocabulary", "")
	viper.SetDefault("db.path", "")
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
}

// initConfig reads in config file, .env and ENV variables if set.
func initConfig() {
	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		utils.Log.Warnf("Could not load .env: %v", err)
	}

	setDefaults()

	home, err := homedir.Dir()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(home)
		viper.SetConfigName(".watchbuyer")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			configPath := filepath.Join(home, ".watchbuyer.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				utils.Log.Debugf("Error creating config file: %s", err)
			}
		} else {
			utils.Log.Warnf("Reading config: %v", err)
		}
	}

	proxy, _ := rootCmd.PersistentFlags().GetString("proxy")
	if err := whttp.SetupDefaultClient(whttp.Options{
		Retries: viper.GetInt("http.retries"),
		Proxy:   proxy,
	}); err != nil {
		utils.Log.Fatal(err)
	}
}
