package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "printwatch",
	Short: "Printer fleet monitor",
	Long: `printwatch polls network printers over SNMP and their status pages,
classifies their condition and emails the owning department when a printer
needs attention.

Configuration comes from the environment (and .env), optionally seeded from
the YAML file named by PRINTWATCH_CONFIG_FILE.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
