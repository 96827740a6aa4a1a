package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cratedex/cratedex/internal/config"
	"github.com/spf13/cobra"
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Delete the cached rustdoc JSON files",
	Run:   runClearCache,
}

func runClearCache(cmd *cobra.Command, args []string) {
	dir := config.ByteCacheDir()
	if err := os.RemoveAll(dir); err != nil {
		slog.Error("failed to clear cache", "dir", dir, "error", err)
		os.Exit(1)
	}
	fmt.Println("byte cache cleared")
}
