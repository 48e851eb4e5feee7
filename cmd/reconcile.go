package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/cost"
	"github.com/sells-group/ais-clarity/internal/model"
	"github.com/sells-group/ais-clarity/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <client-id> [entry-id]",
	Short: "Reconcile one entry, or every pending entry of a client",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "reconcile", true)
		if err != nil {
			return err
		}
		defer env.Close()

		attempts, _ := cmd.Flags().GetInt("retries")
		if attempts <= 0 {
			attempts = cfg.Batch.RetryAttempts
		}
		clientID := args[0]
		out := cmd.OutOrStdout()
		defer formatSpend(out, env.Meter)

		if len(args) == 2 {
			entryID := args[1]
			v, err := env.Orch.ReconcileWithRetry(ctx, clientID, entryID, retryConfig(attempts))
			if err != nil && reconcile.KindOf(err) != reconcile.KindPersist {
				return err
			}
			if err != nil {
				zap.L().Warn("verdict merged but not persisted", zap.Error(err))
			}
			formatVerdict(out, entryID, v)
			return nil
		}

		opts := batchOptions(cfg.Batch)
		opts.Retry = retryConfig(attempts)
		outcomes, err := env.Orch.ReconcilePending(ctx, clientID, opts)
		if err != nil {
			return err
		}
		if len(outcomes) == 0 {
			_, _ = fmt.Fprintf(out, "No pending entries for %s\n", clientID)
			return nil
		}

		failed := formatOutcomes(out, outcomes)
		if failed > 0 {
			return eris.Errorf("%d of %d entries failed", failed, len(outcomes))
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().Int("retries", 0, "attempts per entry for transient analyst failures (default from config)")
	rootCmd.AddCommand(reconcileCmd)
}

func formatVerdict(out io.Writer, entryID string, v *model.Verdict) {
	if v == nil {
		_, _ = fmt.Fprintf(out, "%s: no verdict\n", entryID)
		return
	}
	_, _ = fmt.Fprintf(out, "%s: %s (confidence %.0f%%)\n", entryID, v.Status, v.ConfidenceScore*100)
	_, _ = fmt.Fprintf(out, "  %s\n", v.Explanation)
	if len(v.EvidenceIDs) > 0 {
		_, _ = fmt.Fprintf(out, "  evidence: %v\n", v.EvidenceIDs)
	}
	if v.SuggestedActualAmount != nil {
		_, _ = fmt.Fprintf(out, "  suggested amount: %.2f\n", *v.SuggestedActualAmount)
	}
}

// formatOutcomes prints a batch run as a table and returns the number of
// entries that failed. A verdict that was merged but not persisted counts
// as reconciled.
func formatOutcomes(out io.Writer, outcomes []reconcile.Outcome) int {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ENTRY\tSTATUS\tCONFIDENCE\tERROR")
	_, _ = fmt.Fprintln(w, "-----\t------\t----------\t-----")

	failed := 0
	for _, o := range outcomes {
		status, confidence, errMsg := "-", "-", ""
		if o.Verdict != nil {
			status = string(o.Verdict.Status)
			confidence = fmt.Sprintf("%.0f%%", o.Verdict.ConfidenceScore*100)
		}
		if o.Err != nil {
			errMsg = reconcile.KindOf(o.Err).String()
			if reconcile.KindOf(o.Err) != reconcile.KindPersist {
				failed++
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.EntryID, status, confidence, errMsg)
	}
	_ = w.Flush()
	return failed
}

func formatSpend(out io.Writer, m *cost.Meter) {
	calls, usd := m.Total()
	if calls == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "\nAnalyst calls: %d  Estimated cost: $%.4f\n", calls, usd)
}
