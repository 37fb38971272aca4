package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hamrosewa/hamrosewa/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hamrosewad",
		Short: "HamroSewa search daemon and CLI",
		Long:  "HamroSewa daemon for running the search API server and managing the catalog index",
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.SearchCmd())
	rootCmd.AddCommand(cli.ReindexCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
