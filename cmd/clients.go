package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/ais-clarity/internal/aggregate"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Show the firm overview",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "report", false)
		if err != nil {
			return err
		}
		defer env.Close()

		formatOverview(cmd.OutOrStdout(), aggregate.FirmOverview(env.Ledger.Clients()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clientsCmd)
}

func formatOverview(out io.Writer, ov aggregate.Overview) {
	_, _ = fmt.Fprintf(out, "Active clients: %d  Risk flags: %d  Health: %d%%\n\n",
		ov.ActiveClients, ov.RiskTotal, ov.HealthPercent)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPAN\tENTRIES\tVERIFIED\tRISK\tHEALTH\tSTATE")
	_, _ = fmt.Fprintln(w, "--\t----\t---\t-------\t--------\t----\t------\t-----")
	for _, c := range ov.Clients {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d%%\t%s\n",
			c.ID, c.Name, c.TaxpayerID, c.TotalEntries, c.VerifiedCount, c.RiskCount, c.HealthPercent, c.State)
	}
	_ = w.Flush()
}
