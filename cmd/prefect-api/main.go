package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/noah-isme/prefect-api/api/swagger"
)

// @title Prefect Management API
// @version 1.0.0
// @description Prefect board records, conversations, dashboard and exports.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var rootCmd = &cobra.Command{
	Use:           "prefect-api",
	Short:         "prefect-api serves the prefect management API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, watchCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
