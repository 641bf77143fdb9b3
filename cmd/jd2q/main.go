// Package main provides the entry point for the JD2Q HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jd2q",
	Short: "JD2Q HTTP API server",
	Long:  "JD2Q turns job descriptions into structured interview question sets using Gemini, with per-user encrypted API key storage and generation history.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
