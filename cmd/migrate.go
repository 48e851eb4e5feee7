package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the store schema",
	Long:  "Applies the schema for the configured sqlite or postgres store. With --seed, an empty store is populated from the seed fixture.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zap.L().Info("store migrated", zap.String("driver", cfg.Store.Driver))

		withSeed, _ := cmd.Flags().GetBool("seed")
		if !withSeed {
			return nil
		}
		sc := cfg.Seed
		sc.OnEmpty = true
		_, err = loadLedger(ctx, st, sc)
		return err
	},
}

func init() {
	migrateCmd.Flags().Bool("seed", false, "populate an empty store from the seed fixture")
	rootCmd.AddCommand(migrateCmd)
}
