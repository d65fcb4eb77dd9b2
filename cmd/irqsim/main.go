package main

import (
	"os"

	"github.com/spf13/cobra"

	"irqsim/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "irqsim",
	Short: "Interrupt-driven cooperative executor simulator",
	Long:  `irqsim runs demo workloads on a simulated interrupt controller where interrupt dispatch is the scheduler`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
