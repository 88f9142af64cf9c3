package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/library-kiosk/internal/report"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Show every enrolled patron and what they hold",
	Long: `Print the records view (id, name, loan state, item) as a table or CSV.
With --output the report is written to a file or uploaded to S3.

Examples:
  library-kiosk records
  library-kiosk records --format csv --output records.csv
  library-kiosk records --format csv --output s3://library-reports/records.csv`,
	Args: cobra.NoArgs,
	RunE: runRecords,
}

var recordsHistoryCmd = &cobra.Command{
	Use:   "history <name>",
	Short: "Show the circulation history of a patron",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsHistory,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsHistoryCmd)

	recordsCmd.Flags().String("format", "table", "Output format: table or csv")
	recordsCmd.Flags().StringP("output", "o", "", "Write to a file or s3://bucket/key instead of stdout")

	recordsHistoryCmd.Flags().Int("limit", 20, "Maximum number of events")
	recordsHistoryCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRecords(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(mustGetString(cmd, "format"))
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.kiosk.ListRecords(ctx)
	if err != nil {
		return err
	}

	output := mustGetString(cmd, "output")
	if output == "" {
		return report.Render(os.Stdout, records, format)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, records, format); err != nil {
		return err
	}
	location, err := report.NewExporter(a.cfg.Report).Export(ctx, output, buf.Bytes(), format)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d records to %s\n", len(records), location)
	return nil
}

func runRecordsHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	history, err := a.kiosk.History(ctx, args[0], mustGetInt(cmd, "limit"))
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(history)
	}

	if len(history) == 0 {
		fmt.Printf("No circulation history for %s\n", args[0])
		return nil
	}
	for _, ev := range history {
		fmt.Printf("%s  %-6s  %s\n", ev.At.Local().Format("2006-01-02 15:04:05"), ev.Action, ev.Item)
	}
	return nil
}
