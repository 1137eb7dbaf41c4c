package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jlcilliers/cvchat/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cvchatd",
		Short: "CV chat server",
		Long:  "CV chat daemon for serving the chat API and managing the CV index",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.QueryCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
