package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var indexClear bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index course documents from a file or folder",
	Long: `Index parses course documents, chunks their content, embeds the
chunks, and stores everything in PostgreSQL.

A path to a folder indexes every .txt and .md document in it, skipping
courses that are already indexed. A path to a single file indexes that
document unconditionally.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexClear, "clear", false, "empty the store before indexing")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if info.IsDir() {
		courses, chunks, err := a.RAG.AddCourseFolder(ctx, path, indexClear)
		if err != nil {
			return fmt.Errorf("indexing folder: %w", err)
		}
		fmt.Printf("Indexed %d courses (%d chunks)\n", courses, chunks)

		return nil
	}

	if indexClear {
		return fmt.Errorf("--clear is only supported when indexing a folder")
	}

	c, chunks, err := a.RAG.AddCourseDocument(ctx, path)
	if err != nil {
		return fmt.Errorf("indexing document: %w", err)
	}
	fmt.Printf("Indexed course %q (%d chunks)\n", c.Title, chunks)

	return nil
}
