/*
Copyright © 2025 IFRC GO

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"fmt"
	"os"

	"github.com/IFRCGo/extractor-operational-learnings/internal/config"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "opslearning",
		Short: "opslearning extracts and summarizes operational learnings from IFRC GO.",
		Long: `opslearning works with the operational learnings of the IFRC GO platform.

It extracts lessons learnt and challenges from DREF final reports, tags them
with PER components and sectors, and summarizes filtered collections of
learnings into a primary and a secondary JSON summary with Gemini.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.opslearning.yaml)")

	// Add subcommands
	rootCmd.AddCommand(NewSummarizeCmd())
	rootCmd.AddCommand(NewExtractCmd())
	rootCmd.AddCommand(NewPrioritizationListsCmd())
	rootCmd.AddCommand(NewUnclosedReportsCmd())
	rootCmd.AddCommand(NewCacheCmd())
	rootCmd.AddCommand(NewQualityCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	cfg = loaded

	logger.Configure(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	// Show which config file is being used (if any)
	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
	return nil
}
