package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/model"
	"github.com/sells-group/ais-clarity/internal/ocr"
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Manage the evidence vault",
}

var evidenceAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Register documents as evidence, extracting their text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "evidence", false)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Store == nil {
			zap.L().Warn("store.driver is memory; evidence will not outlive this command")
		}

		ex, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return err
		}

		added, err := addEvidenceFiles(ctx, env, ex, args, model.NewEvidenceID, time.Now)
		formatEvidence(cmd.OutOrStdout(), added)
		return err
	},
}

var evidenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered evidence",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "report", false)
		if err != nil {
			return err
		}
		defer env.Close()

		formatEvidence(cmd.OutOrStdout(), env.Ledger.Evidence())
		return nil
	},
}

func init() {
	evidenceCmd.AddCommand(evidenceAddCmd, evidenceListCmd)
	rootCmd.AddCommand(evidenceCmd)
}

// addEvidenceFiles extracts and registers each path in order, stopping at
// the first failure. Evidence registered before the failure is returned.
func addEvidenceFiles(ctx context.Context, env *appEnv, ex ocr.Extractor, paths []string, newID func() string, now func() time.Time) ([]model.Evidence, error) {
	added := make([]model.Evidence, 0, len(paths))
	for _, path := range paths {
		ev, err := ocr.FromFile(ctx, ex, path, newID(), now())
		if err != nil {
			return added, err
		}
		if err := env.Ledger.AddEvidence(ev); err != nil {
			return added, eris.Wrapf(err, "register evidence %s", ev.Name)
		}
		if env.Store != nil {
			if err := env.Store.SaveEvidence(ctx, ev); err != nil {
				return added, eris.Wrapf(err, "save evidence %s", ev.Name)
			}
		}
		zap.L().Info("evidence registered",
			zap.String("evidence_id", ev.ID),
			zap.String("name", ev.Name),
			zap.Bool("has_text", ev.ExtractedText != nil),
		)
		added = append(added, ev)
	}
	return added, nil
}

func formatEvidence(out io.Writer, evidence []model.Evidence) {
	if len(evidence) == 0 {
		_, _ = fmt.Fprintln(out, "No evidence.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPE\tSIZE\tUPLOADED\tTEXT")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t----\t--------\t----")
	for _, ev := range evidence {
		text := "-"
		if ev.ExtractedText != nil {
			text = fmt.Sprintf("%d chars", len(*ev.ExtractedText))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			ev.ID, ev.Name, ev.MimeType, ev.SizeBytes, ev.UploadedAt.Format(time.RFC3339), text)
	}
	_ = w.Flush()
}
