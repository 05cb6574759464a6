package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/scrubware/pmscrub/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fetched-record cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached API pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, code := loadConfigAndLogger()
		if code != ExitSuccess {
			return fmt.Errorf("loading configuration failed")
		}
		defer log.Sync()

		c, err := cache.New(cfg.Cache, log)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer c.Close()

		if err := c.Clear(context.Background()); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintln(os.Stdout, "Cache cleared.")
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, code := loadConfigAndLogger()
		if code != ExitSuccess {
			return fmt.Errorf("loading configuration failed")
		}
		defer log.Sync()

		if !cfg.Cache.Enabled {
			fmt.Fprintln(os.Stdout, "Cache is disabled.")
			return nil
		}
		c, err := cache.New(cfg.Cache, log)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer c.Close()

		data, err := json.MarshalIndent(c.Stats(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheShowCmd)
}
