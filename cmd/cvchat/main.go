package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jlcilliers/cvchat/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "cvchat",
		Short: "Client for the CV chat API",
		Long: `cvchat uploads a CV to a cvchatd server and queries it.

Environment variables:
  CVCHAT_API_URL       API base URL (default: http://localhost:8080)
  CVCHAT_ADMIN_TOKEN   Admin token for upload, status and document`,
		Version:      version,
		SilenceUsage: true,
	}

	client.AddConnectionFlags(rootCmd)
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.DocumentCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
