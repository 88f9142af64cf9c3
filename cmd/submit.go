package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/library-kiosk/internal/capture"
	"github.com/kozaktomas/library-kiosk/internal/circulation"
	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit <name> [item-code]",
	Short: "Issue or return an item",
	Long: `Issue an item to an identified patron, or take back the item they hold.
The item code is typed as an argument or read from a barcode photo with --scan.

Examples:
  library-kiosk submit "Ada Lovelace" 9780131103627
  library-kiosk submit "Ada Lovelace" --scan cover.jpg`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().String("scan", "", "Photo of the item barcode or QR code")
	submitCmd.Flags().Bool("json", false, "Output as JSON")
}

func itemCodeFromArgs(cmd *cobra.Command, args []string) (string, error) {
	scan := mustGetString(cmd, "scan")
	switch {
	case len(args) == 2 && scan != "":
		return "", errors.New("give the item code either as an argument or with --scan, not both")
	case len(args) == 2:
		return args[1], nil
	case scan != "":
		data, err := os.ReadFile(scan)
		if err != nil {
			return "", fmt.Errorf("failed to read scan: %w", err)
		}
		code, err := capture.NewBarcodeDecoder().Decode(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode %s: %w", scan, err)
		}
		return code, nil
	default:
		return "", errors.New("item code is required")
	}
}

func runSubmit(cmd *cobra.Command, args []string) error {
	code, err := itemCodeFromArgs(cmd, args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.kiosk.Submit(ctx, args[0], code)
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}

	switch result.Status {
	case circulation.TransactionIssued:
		fmt.Printf("Issued %s to %s\n", result.Item, args[0])
	case circulation.TransactionReturned:
		fmt.Printf("%s returned %s\n", args[0], result.Item)
	default:
		fmt.Printf("Refused: %s\n", result.Reason)
		if result.HeldItem != "" {
			fmt.Printf("Return %s first\n", result.HeldItem)
		}
	}
	return nil
}
