package handlers

import (
	"fmt"

	"github.com/IFRCGo/extractor-operational-learnings/internal/contextualize"
	"github.com/IFRCGo/extractor-operational-learnings/internal/logger"
	"github.com/IFRCGo/extractor-operational-learnings/internal/store"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache management command
func NewCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the appeal and summary cache",
		Long:  `Inspect, clean, and manage the SQLite cache of appeal names and generated summaries.`,
	}

	// Add subcommands
	cacheCmd.AddCommand(newCacheStatsCmd())
	cacheCmd.AddCommand(newCacheClearCmd())
	cacheCmd.AddCommand(newCacheCleanupCmd())

	return cacheCmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics and storage information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.Store) error {
				stats, err := s.GetCacheStats()
				if err != nil {
					return fmt.Errorf("failed to get cache statistics: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Appeals cached: %d\n", stats.AppealCount)
				fmt.Fprintf(out, "Summaries stored: %d\n", stats.SummaryCount)
				fmt.Fprintf(out, "Cache size: %.2f MB\n", float64(stats.CacheSize)/1024/1024)
				fmt.Fprintf(out, "Last updated: %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the cache (removes cached appeals and stored summaries)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if !confirm {
				fmt.Fprint(cmd.OutOrStdout(), "This will remove all cached appeals and stored summaries. Continue? [y/N]: ")
				var response string
				fmt.Fscanln(cmd.InOrStdin(), &response)
				if response != "y" && response != "Y" && response != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Cache clear cancelled")
					return nil
				}
			}
			return withStore(func(s *store.Store) error {
				if err := s.ClearCache(); err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
				return nil
			})
		},
	}

	clearCmd.Flags().Bool("confirm", false, "Skip confirmation prompt")
	return clearCmd
}

func newCacheCleanupCmd() *cobra.Command {
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove appeal names older than the maximum age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			maxAge, _ := cmd.Flags().GetDuration("max-age")
			return withStore(func(s *store.Store) error {
				if err := s.CleanupOldCache(maxAge); err != nil {
					return fmt.Errorf("failed to clean up cache: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed appeals cached more than %s ago\n", maxAge)
				return nil
			})
		},
	}

	cleanupCmd.Flags().Duration("max-age", contextualize.DefaultMaxAge, "Maximum age of cached appeal names")
	return cleanupCmd
}

func withStore(fn func(s *store.Store) error) error {
	cacheStore, err := store.NewStore(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize cache store: %w", err)
	}
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logger.Error("Failed to close cache store", err)
		}
	}()
	return fn(cacheStore)
}
