package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:   "items <crate>",
	Short: "List a crate's top-level public items",
	Example: `  cratedex items serde
  cratedex items tokio`,
	Args: cobra.ExactArgs(1),
	Run:  runItems,
}

func runItems(cmd *cobra.Command, args []string) {
	engine, err := cliSetup(cmd.Context())
	if err != nil {
		log.Fatalf("%v", err)
	}

	items, err := engine.ListCrateItems(cmd.Context(), args[0])
	if err != nil {
		log.Fatalf("list items failed: %v", err)
	}
	for _, it := range items {
		if it.Summary != "" {
			fmt.Printf("%-12s %s: %s\n", it.Kind, it.Path, it.Summary)
		} else {
			fmt.Printf("%-12s %s\n", it.Kind, it.Path)
		}
	}
}
