// Package main provides the entry point for the shipment document review service and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "doc_review",
	Short: "Shipment document cross-verification",
	Long:  "doc_review extracts key fields from every document of a freight quotation and asks a generative model to flag inconsistencies across them, via REST API or from the command line.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
