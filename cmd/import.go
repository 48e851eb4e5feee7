package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/ledger"
	"github.com/sells-group/ais-clarity/internal/model"
	"github.com/sells-group/ais-clarity/internal/statement"
)

var importCmd = &cobra.Command{
	Use:   "import <client-id> <statement.csv|statement.xlsx>",
	Short: "Import reported entries from an AIS statement export",
	Long: "Reads entries from a CSV or XLSX statement export and adds them to the\n" +
		"client as pending entries. A new client is created when --name is given.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "report", false)
		if err != nil {
			return err
		}
		defer env.Close()

		fy, _ := cmd.Flags().GetString("fy")
		sheet, _ := cmd.Flags().GetString("sheet")
		entries, err := statement.ReadFile(ctx, args[1], statement.Options{
			FinancialYear: fy,
			Sheet:         sheet,
			ImportedAt:    time.Now(),
		})
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		pan, _ := cmd.Flags().GetString("pan")
		created, err := importEntries(ctx, env, model.ClientRecord{ID: args[0], Name: name, TaxpayerID: pan}, entries)
		if err != nil {
			return err
		}

		verb := "Added"
		if created {
			verb = "Created client with"
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d entries for %s\n", verb, len(entries), args[0])
		return nil
	},
}

func init() {
	importCmd.Flags().String("name", "", "client name; creates the client if it does not exist")
	importCmd.Flags().String("pan", "", "taxpayer PAN for a new client")
	importCmd.Flags().String("fy", "", "financial year for rows without one, e.g. 2023-24")
	importCmd.Flags().String("sheet", "", "xlsx sheet name (default first sheet)")
	rootCmd.AddCommand(importCmd)
}

// importEntries adds entries to the client, creating it from c when it is
// not in the ledger and c.Name is set. It reports whether the client was
// created. Every entry is checked against the ledger before anything is
// persisted.
func importEntries(ctx context.Context, env *appEnv, c model.ClientRecord, entries []model.Entry) (bool, error) {
	existing, err := env.Ledger.Client(c.ID)
	switch {
	case errors.Is(err, ledger.ErrClientNotFound):
		if c.Name == "" {
			return false, eris.Wrapf(err, "import: client %s does not exist; pass --name to create it", c.ID)
		}
		c.Entries = entries
		if err := env.Ledger.AddClient(c); err != nil {
			return false, err
		}
		if env.Store != nil {
			if err := env.Store.SaveClient(ctx, c); err != nil {
				return true, eris.Wrapf(err, "import: save client %s", c.ID)
			}
		}
		zap.L().Info("client created from statement", zap.String("client_id", c.ID), zap.Int("entries", len(entries)))
		return true, nil
	case err != nil:
		return false, err
	}

	for _, e := range entries {
		if existing.FindEntry(e.ID) >= 0 {
			return false, eris.Wrapf(ledger.ErrDuplicateID, "import: client %s already has entry %s", c.ID, e.ID)
		}
	}
	for _, e := range entries {
		if err := env.Ledger.AddEntry(c.ID, e); err != nil {
			return false, err
		}
		if env.Store != nil {
			if err := env.Store.SaveEntry(ctx, c.ID, e); err != nil {
				return false, eris.Wrapf(err, "import: save entry %s", e.ID)
			}
		}
	}
	zap.L().Info("entries imported", zap.String("client_id", c.ID), zap.Int("entries", len(entries)))
	return false, nil
}
