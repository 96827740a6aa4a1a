package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy-search documentation",
	Example: `  cratedex search "spawn blocking" --crate tokio
  cratedex search deserialize`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

var (
	searchCrate string
	searchLimit int
)

func init() {
	searchCmd.Flags().StringVar(&searchCrate, "crate", "", "scope the search to one crate")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) {
	engine, err := cliSetup(cmd.Context())
	if err != nil {
		log.Fatalf("%v", err)
	}

	matches, err := engine.SearchDocs(cmd.Context(), args[0], searchCrate, searchLimit)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	if len(matches) == 0 {
		fmt.Println("no matches")
		return
	}
	for _, m := range matches {
		if m.Summary != "" {
			fmt.Printf("%.2f %-12s %s: %s\n", m.Score, m.Kind, m.Path, m.Summary)
		} else {
			fmt.Printf("%.2f %-12s %s\n", m.Score, m.Kind, m.Path)
		}
	}
}
