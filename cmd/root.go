package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"geminiproxy/internal/config"
)

var (
	cfgFile string
	v       = config.NewViper()
)

var rootCmd = &cobra.Command{
	Use:   "geminiproxy",
	Short: "Gemini prompt proxy and chat history backend",
	Long: `geminiproxy relays prompts to the Gemini generateContent API and stores
chat messages per session in MySQL or SQLite.

Running without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadDotEnv)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file")
	rootCmd.PersistentFlags().String("db-driver", "", "database driver: mysql or sqlite3")
	rootCmd.PersistentFlags().String("db-dsn", "", "sqlite database file")
	rootCmd.PersistentFlags().String("addr", "", "listen address, e.g. :3001")

	cobra.CheckErr(v.BindPFlag("db_driver", rootCmd.PersistentFlags().Lookup("db-driver")))
	cobra.CheckErr(v.BindPFlag("db_dsn", rootCmd.PersistentFlags().Lookup("db-dsn")))
	cobra.CheckErr(v.BindPFlag("server_address", rootCmd.PersistentFlags().Lookup("addr")))

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// loadDotEnv reads .env when present so local runs pick up GEMINI_API_KEY and
// the DB_* settings. A missing file is not an error.
func loadDotEnv() {
	_ = godotenv.Load()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
