// Package main provides the entry point for the gisc CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"

	"github.com/okian/gisc/cmd/gisc/commands"
)

func main() {
	// GISC_* variables may live in a local .env file.
	_ = godotenv.Load()

	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
