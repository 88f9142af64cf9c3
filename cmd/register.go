package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Enroll a patron by face",
	Long: `Enroll a patron with a face embedding. Registration is refused when the
face is already enrolled (under any name) or, with CIRCULATION_UNIQUE_NAMES,
when the name is taken.

Examples:
  library-kiosk register "Ada Lovelace" --image ada.jpg
  library-kiosk register "Ada Lovelace" --embedding 0.12,-0.03,...`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	addFaceFlags(registerCmd)
	registerCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRegister(cmd *cobra.Command, args []string) error {
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

	result, err := a.kiosk.Register(ctx, args[0], embedding)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}

	if result.Admitted() {
		fmt.Printf("Registered %s (id %d)\n", args[0], result.ID)
		return nil
	}
	switch result.MatchedName {
	case "":
		fmt.Printf("Registration refused: %s\n", result.Reason)
	default:
		fmt.Printf("Registration refused: %s (matches %s", result.Reason, result.MatchedName)
		if result.Distance > 0 {
			fmt.Printf(", distance %.3f", result.Distance)
		}
		fmt.Println(")")
	}
	return nil
}
