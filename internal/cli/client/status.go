package client

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlcilliers/cvchat/internal/domain"
)

func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the server's CV index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status domain.IndexStatus
			if err := NewAPIClientWithCmd(cmd).Get(cmd.Context(), "/api/admin/index", &status); err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd.OutOrStdout(), status)
			}
			if !status.Indexed {
				fmt.Fprintf(cmd.OutOrStdout(), "No CV indexed (mode %s)\n", status.Mode)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d chunks indexed (mode %s)\n", status.Chunks, status.Mode)
			return nil
		},
	}
}

func DocumentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "document",
		Short: "Print a download link for the uploaded CV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc struct {
				URL string `json:"url"`
			}
			if err := NewAPIClientWithCmd(cmd).Get(cmd.Context(), "/api/admin/document", &doc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc.URL)
			return nil
		},
	}
}
