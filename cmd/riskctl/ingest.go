package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/transport/fswatch"
)

var (
	ingestGlob  string
	ingestDocID string
	ingestMeta  []string
	ingestExts  []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest files into the knowledge base",
	Long: `Splits, embeds and indexes each file. Directories are walked recursively.
Use --glob for patterns such as "docs/**/*.md". Each file becomes one document
whose id is the file name without extension unless --doc-id is given.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestGlob, "glob", "", "glob pattern (supports **)")
	ingestCmd.Flags().StringVar(&ingestDocID, "doc-id", "", "document id (single file only)")
	ingestCmd.Flags().StringArrayVar(&ingestMeta, "meta", nil, "metadata key=value (repeatable)")
	ingestCmd.Flags().StringSliceVar(&ingestExts, "ext", fswatch.DefaultExtensions, "extensions to pick up when walking directories")
	rootCmd.AddCommand(ingestCmd)
}

// pathIngester is the part of the knowledge service the CLI needs.
type pathIngester interface {
	IngestPath(ctx context.Context, documentID, path string, metadata map[string]any) ([]string, error)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && ingestGlob == "" {
		return errors.New("provide at least one path or --glob")
	}

	meta, err := parseMeta(ingestMeta)
	if err != nil {
		return err
	}
	files, err := expandPaths(args, ingestGlob, extSet(ingestExts))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no matching files")
	}
	if ingestDocID != "" && len(files) > 1 {
		return fmt.Errorf("--doc-id needs exactly one file, matched %d", len(files))
	}

	total, failed := ingestFiles(cmd.Context(), cmd.OutOrStdout(), kb, files, ingestDocID, meta)
	cmd.Printf("Ingested %d chunks from %d files (%d failed).\n", total, len(files)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d files failed", failed)
	}
	return nil
}

// ingestFiles ingests each file and reports per-file results. It returns the
// chunk total and the number of files that failed.
func ingestFiles(
	ctx context.Context, out io.Writer, kb pathIngester, files []string, docID string, meta map[string]any,
) (int, int) {
	var total, failed int
	for _, f := range files {
		ids, err := kb.IngestPath(ctx, docID, f, meta)
		if err != nil {
			failed++
			_, _ = fmt.Fprintf(out, "%s: error: %v\n", f, err)
			if logger != nil {
				logger.Warn("Ingest failed", zap.String("path", f), zap.Error(err))
			}
			continue
		}
		total += len(ids)
		_, _ = fmt.Fprintf(out, "%s: %d chunks\n", f, len(ids))
	}
	return total, failed
}
