// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-scout CLI.
package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-scout/internal/config"
	"github.com/pdiddy/paper-scout/internal/logging"
	"github.com/pdiddy/paper-scout/internal/secrets"
	"github.com/pdiddy/paper-scout/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Populated by the root command before any subcommand runs.
var (
	cfg types.Config
	log = zap.NewNop()
)

// rootCmd is the base command for the paper-scout CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-scout",
	Short: "Crawl preprint listings for papers with trading applications",
	Long: `paper-scout walks arXiv listing pages, extracts each paper's title, authors,
abstract, and PDF link, keeps the papers that match the configured keywords,
and optionally asks an LLM whether each one could generate trading ideas.

Accepted papers are written to a text report and a JSON file. The schedule
command repeats the crawl on a cron schedule.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		logger, err := logging.New(loaded.Log)
		if err != nil {
			return err
		}
		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		if err := config.ResolveAPIKey(&loaded, secretsDir, logger); err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Info("using config file", zap.String("path", used))
		}
		cfg, log = loaded, logger
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paper-scout.yaml or ~/.config/paper-scout/config.yaml)")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of API key files")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("dev", false, "human-readable console logs")

	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.development", pf.Lookup("dev"))
}

func initConfig() {
	config.Setup(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-scout")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-scout"))
		}
	}

	// A missing default config file is fine; an explicit one must exist.
	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		cobra.CheckErr(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
