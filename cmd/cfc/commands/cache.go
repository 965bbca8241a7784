package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/cflowchart/internal/config"
	"github.com/l3aro/cflowchart/pkg/cache"
)

// cacheSummary is the persisted state of the chart cache.
type cacheSummary struct {
	Path    string        `json:"path"`
	Entries int           `json:"entries"`
	Bytes   int64         `json:"bytes"`
	Charts  []cache.Entry `json:"charts,omitempty"`
}

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the chart cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the chart cache holds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		list, _ := cmd.Flags().GetBool("list")

		summary, err := cacheStats(cfg, list)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), summary)
		}
		return printCacheStats(cmd.OutOrStdout(), summary)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached chart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := clearCache(cfg)
		if err != nil {
			return err
		}
		logger.Info("cache cleared", "removed", removed)
		return nil
	},
}

func init() {
	cacheStatsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	cacheStatsCmd.Flags().BoolP("list", "l", false, "List cached charts")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	RootCmd.AddCommand(cacheCmd)
}

func cacheStats(c *config.Config, list bool) (cacheSummary, error) {
	store, err := cache.Open(c.CacheDir, c.CacheMaxEntries)
	if err != nil {
		return cacheSummary{}, fmt.Errorf("opening cache: %w", err)
	}

	stats := store.Stats()
	summary := cacheSummary{
		Path:    store.Path(),
		Entries: stats.Length,
		Bytes:   stats.CurrentBytes,
	}
	if list {
		summary.Charts = store.Entries()
	}
	return summary, nil
}

func printCacheStats(w io.Writer, s cacheSummary) error {
	fmt.Fprintf(w, "Cache file: %s\n", s.Path)
	fmt.Fprintf(w, "Charts:     %d\n", s.Entries)
	fmt.Fprintf(w, "Size:       %d bytes\n", s.Bytes)
	for _, e := range s.Charts {
		fmt.Fprintf(w, "  %s  %-7s  %6d  %s\n", e.AccessedAt.Format("2006-01-02 15:04"), e.Format, e.Size, e.File)
	}
	return nil
}

// clearCache empties the cache file and returns how many charts it held.
func clearCache(c *config.Config) (int, error) {
	store, err := cache.Open(c.CacheDir, c.CacheMaxEntries)
	if err != nil {
		return 0, fmt.Errorf("opening cache: %w", err)
	}
	removed := store.Len()
	if _, err := os.Stat(store.Path()); os.IsNotExist(err) {
		return 0, nil
	}
	store.Clear()
	if err := store.Save(); err != nil {
		return 0, fmt.Errorf("saving cache: %w", err)
	}
	return removed, nil
}
