package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Roster maintenance commands",
}

var rosterAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Find enrolled patrons whose faces are too similar",
	Long: `Search the roster for pairs of patrons closer to each other than
MATCH_DEDUP_TOLERANCE. Registration refuses such pairs, so any hit means two
enrollments raced or were made under an older tolerance and need review.`,
	Args: cobra.NoArgs,
	RunE: runRosterAudit,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.AddCommand(rosterAuditCmd)
	rosterAuditCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRosterAudit(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if jsonOutput {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Auditing roster"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("patrons"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
			)
		}
		bar.Set(done)
	}

	result, err := a.kiosk.AuditRoster(ctx, progress)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("Checked %d patrons against tolerance %.2f\n", result.Checked, result.Tolerance)
	if len(result.Pairs) == 0 {
		fmt.Println("No look-alike enrollments found")
		return nil
	}
	fmt.Printf("Found %d look-alike pairs:\n", len(result.Pairs))
	for _, p := range result.Pairs {
		fmt.Printf("  %s (id %d) <-> %s (id %d)  distance %.3f\n", p.A.Name, p.A.ID, p.B.Name, p.B.ID, p.Distance)
	}
	return nil
}
