package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "List workspace dependencies",
	Args:  cobra.NoArgs,
	Run:   runDeps,
}

func runDeps(cmd *cobra.Command, args []string) {
	engine, err := cliSetup(cmd.Context())
	if err != nil {
		log.Fatalf("%v", err)
	}
	for _, dep := range engine.ListDeps() {
		fmt.Println(dep)
	}
}
