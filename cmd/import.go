package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fmeca-service/logger"
	"fmeca-service/store"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <seed.yaml>",
		Short: "Load components, failure modes and default links from a YAML seed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(a.cfg.Logging.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("error opening seed: %w", err)
			}
			defer f.Close()
			seed, err := store.ParseSeed(f)
			if err != nil {
				return err
			}

			conn, st, err := a.openStore()
			if err != nil {
				fatalIfUnavailable(log, err)
				return err
			}
			defer conn.Close()

			res, err := st.ImportSeed(cmd.Context(), seed)
			if err != nil {
				return err
			}
			log.Info("seed imported", "path", args[0], "components", res.Components, "failure_modes", res.FailureModes, "defaults", res.Defaults)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d components, %d failure modes, %d default links\n",
				res.Components, res.FailureModes, res.Defaults)
			return nil
		},
	}
}
