package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "optima",
	Short: "Optima IDP: multi-tenant identity and access backend",
	Long: `Optima IDP is the identity backend for the Optima platform: per-tenant
admin bootstrap, dual-token JWT sessions, role-based authorization and an
append-only audit trail.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("optima %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
