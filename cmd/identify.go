package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/library-kiosk/internal/circulation"
	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Identify a patron by face",
	Long: `Find the enrolled patron closest to a face, accepting the match only
within MATCH_IDENTIFY_TOLERANCE.`,
	Args: cobra.NoArgs,
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
	addFaceFlags(identifyCmd)
	identifyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	embedding, err := faceFromFlags(ctx, cmd, a)
	if err != nil {
		return err
	}

	result, err := a.kiosk.Identify(ctx, embedding)
	if err != nil {
		return fmt.Errorf("identification failed: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}

	switch result.Status {
	case circulation.Identified:
		fmt.Printf("Identified %s (id %d, distance %.3f)\n", result.Name, result.ID, result.Distance)
	case circulation.EmptyRoster:
		fmt.Println("Nobody is enrolled yet")
	default:
		fmt.Println("Face not recognized")
	}
	return nil
}
