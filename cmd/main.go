package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gitlab.com/offlinejudge.net/internal/adapter/logging"
	"gitlab.com/offlinejudge.net/internal/config"
	logger2 "gitlab.com/offlinejudge.net/internal/global/logger"
)

var (
	envFlag     string
	catalogFlag string

	sysCfg *config.AppConfig
	logger *logging.ZapLogger
)

var rootCmd = &cobra.Command{
	Use:   "judge",
	Short: "Offline judge - grade solutions against a problem catalog",
	Long: `judge runs candidate solutions, written in a Python-like language, against
the test cases of a problem catalog and reports a verdict per test.

Use it locally (list, gen, run) or start the HTTP API with serve.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "Load <env>.env before reading the environment (e.g. dev)")
	rootCmd.PersistentFlags().StringVar(&catalogFlag, "catalog", "", "Problem catalog file (sets CATALOG_SOURCE=file)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if envFlag != "" {
		if err := godotenv.Load(envFlag + ".env"); err != nil {
			return fmt.Errorf("loading %s.env: %w", envFlag, err)
		}
	}

	sysCfg = config.NewSystemConfig()
	if catalogFlag != "" {
		sysCfg.CatalogConfig.Source = config.CatalogSourceFile
		sysCfg.CatalogConfig.File = catalogFlag
	}

	logger = logging.NewZapLoggerWithConfig(sysCfg.LogConfig)
	logger2.Logger = logger
	return nil
}

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
