package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jlcilliers/cvchat/internal/domain"
)

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type searchResponse struct {
	Results []domain.Chunk `json:"results"`
}

func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Show the CV chunks that best match a query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	cmd.Flags().IntP("top-k", "k", 5, "Number of chunks to return")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	topK, _ := cmd.Flags().GetInt("top-k")
	req := searchRequest{Query: strings.Join(args, " "), TopK: topK}

	var resp searchResponse
	if err := NewAPIClientWithCmd(cmd).Post(cmd.Context(), "/api/search", req, &resp); err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), resp.Results)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results. Has a CV been uploaded?")
		return nil
	}
	for i, c := range resp.Results {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s]\n%s\n\n", i+1, c.ID, c.Text)
	}
	return nil
}
