package client

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jlcilliers/cvchat/internal/domain"
)

func UploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a CV and rebuild the index",
		Long:  "Upload a PDF CV to the server. The new document replaces the current index. Requires the admin token.",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpload,
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	client := NewAPIClientWithCmd(cmd)
	if client.adminToken == "" {
		return fmt.Errorf("%s not set (or pass --admin-token)", envAdminToken)
	}

	var onProgress ProgressFunc
	if !jsonOutput(cmd) {
		onProgress = func(current, total int64) {
			fmt.Fprintf(cmd.ErrOrStderr(), "\rUploading... %3d%%", current*100/max(total, 1))
		}
	}

	var result domain.IngestResult
	err = client.UploadFile(cmd.Context(), "/api/admin/upload", filepath.Base(path), file, onProgress, &result)
	if onProgress != nil {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s: %d chunks (~%d tokens)\n", filepath.Base(path), result.Chunks, result.Tokens)
	return nil
}
