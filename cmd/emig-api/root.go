package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "emig-api",
	Short: "emig-api runs the relocation report pipeline service",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
}
