package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jlcilliers/cvchat/internal/config"
	"github.com/jlcilliers/cvchat/internal/domain"
	"github.com/jlcilliers/cvchat/internal/service"
)

func QueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Rank indexed chunks against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery,
	}
	cmd.Flags().IntP("top-k", "k", service.DefaultTopK, "Number of chunks to return")
	addOutputFlag(cmd.Flags())
	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.Join(args, " ")
	topK, _ := cmd.Flags().GetInt("top-k")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	chunks, err := a.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), chunks)
	}
	printChunks(cmd.OutOrStdout(), chunks)
	return nil
}

func printChunks(w io.Writer, chunks []domain.Chunk) {
	if len(chunks) == 0 {
		fmt.Fprintln(w, "No indexed chunks.")
		return
	}
	for i, c := range chunks {
		fmt.Fprintf(w, "%d. [%s] %s\n\n", i+1, c.ID, c.Text)
	}
}

func addOutputFlag(fs *pflag.FlagSet) {
	fs.String("output", "text", "Output format: text or json")
}

func jsonOutput(cmd *cobra.Command) bool {
	output, _ := cmd.Flags().GetString("output")
	return output == "json"
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
