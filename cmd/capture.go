package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/library-kiosk/internal/capture"
	"github.com/spf13/cobra"
)

// addFaceFlags registers the two ways a command can receive a face.
func addFaceFlags(cmd *cobra.Command) {
	cmd.Flags().Float32Slice("embedding", nil, "Face embedding as comma-separated numbers")
	cmd.Flags().String("image", "", "Face photo to send to the embedding service (EMBEDDING_URL)")
	cmd.MarkFlagsMutuallyExclusive("embedding", "image")
}

// faceFromFlags returns the embedding given on the command line or computed from --image.
func faceFromFlags(ctx context.Context, cmd *cobra.Command, a *app) ([]float32, error) {
	if path := mustGetString(cmd, "image"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		client := capture.NewEmbeddingClient(a.cfg.Capture.EmbeddingURL, a.cfg.Capture.MaxImageSize)
		embedding, err := client.Embed(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("failed to compute embedding for %s: %w", path, err)
		}
		return embedding, nil
	}

	embedding := mustGetFloat32Slice(cmd, "embedding")
	if len(embedding) == 0 {
		return nil, errors.New("either --embedding or --image is required")
	}
	return embedding, nil
}
