package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <crate> <path>",
	Short: "Read an item's full documentation",
	Example: `  cratedex get serde serde::de::Deserialize
  cratedex get tokio tokio::spawn`,
	Args: cobra.ExactArgs(2),
	Run:  runGet,
}

func runGet(cmd *cobra.Command, args []string) {
	engine, err := cliSetup(cmd.Context())
	if err != nil {
		log.Fatalf("%v", err)
	}

	doc, err := engine.GetDocs(cmd.Context(), args[0], args[1])
	if err != nil {
		log.Fatalf("get docs failed: %v", err)
	}
	fmt.Print(doc)
}
