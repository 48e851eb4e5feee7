package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <client-id>",
	Short: "Print a client's insight report or export its audit workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "report", false)
		if err != nil {
			return err
		}
		defer env.Close()

		c, evidence, err := env.Ledger.Snapshot(args[0])
		if err != nil {
			return err
		}
		r := report.Build(c, evidence)

		if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
			if err := writeWorkbookFile(path, r); err != nil {
				return err
			}
			zap.L().Info("audit workbook written", zap.String("client_id", c.ID), zap.String("path", path))
			return nil
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}

		formatReport(cmd.OutOrStdout(), r)
		return nil
	},
}

func init() {
	reportCmd.Flags().String("xlsx", "", "write the audit workbook to this path")
	reportCmd.Flags().Bool("json", false, "print the report as JSON")
	rootCmd.AddCommand(reportCmd)
}

func writeWorkbookFile(path string, r report.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create workbook file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrap(cerr, "close workbook file")
		}
	}()
	return report.WriteWorkbook(f, r)
}

func formatReport(out io.Writer, r report.Report) {
	_, _ = fmt.Fprintf(out, "%s (%s) %s\n", r.ClientName, r.TaxpayerID, r.ClientID)
	_, _ = fmt.Fprintf(out, "Entries: %d  Verified: %d%%  Risk flags: %d  Pending: %d  Avg confidence: %.0f%%\n\n",
		r.Stats.Total, r.VerifiedPercent, r.Stats.Risk, r.Stats.Pending, r.AverageConfidence*100)

	if len(r.Lines) == 0 {
		_, _ = fmt.Fprintln(out, "No reconciled entries.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ENTRY\tDESCRIPTION\tREPORTED\tSTATUS\tCONFIDENCE\tSUGGESTED")
	_, _ = fmt.Fprintln(w, "-----\t-----------\t--------\t------\t----------\t---------")
	for _, l := range r.Lines {
		suggested := l.SuggestedText
		if suggested == "" {
			suggested = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
			l.EntryID, l.Description, l.ReportedText, l.Status, l.ConfidencePercent, suggested)
	}
	_ = w.Flush()
}
