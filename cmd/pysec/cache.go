package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FanZDStar/oss-2025/internal/cache"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the parse cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show parse cache occupancy",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()

		stats := c.GetStats()
		fmt.Printf("enabled:      %v\n", stats.Enabled)
		fmt.Printf("directory:    %s\n", stats.Directory)
		fmt.Printf("disk entries: %d\n", stats.DiskEntries)
		fmt.Printf("disk size:    %d bytes\n", stats.DiskBytes)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached parse tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Clear(); err != nil {
			return err
		}
		fmt.Println("Cache cleared.")
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop stale entries for files that no longer exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		defer c.Close()

		removed, err := c.Prune()
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d entries.\n", removed)
		return nil
	},
}

func openCache() (*cache.Cache, error) {
	return cache.New(cache.Config{
		Enabled:   cfg.Cache.Enabled,
		Directory: cfg.CacheDirFor(),
		TTL:       cfg.Cache.TTL,
	}, parser.New().Parse, logger)
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
}
