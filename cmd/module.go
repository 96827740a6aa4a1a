package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var moduleCmd = &cobra.Command{
	Use:   "module <crate> [path]",
	Short: "Show a module's docs and contents",
	Example: `  cratedex module tokio
  cratedex module tokio tokio::sync`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runModule,
}

func runModule(cmd *cobra.Command, args []string) {
	engine, err := cliSetup(cmd.Context())
	if err != nil {
		log.Fatalf("%v", err)
	}

	path := ""
	if len(args) > 1 {
		path = args[1]
	}
	doc, err := engine.GetModule(cmd.Context(), args[0], path)
	if err != nil {
		log.Fatalf("get module failed: %v", err)
	}
	fmt.Print(doc)
}
