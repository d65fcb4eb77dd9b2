package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available scenarios",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range scenarioNames() {
			fmt.Printf("%-8s  %s\n", name, scenarios[name])
		}
	},
}
