package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fmeca-service/logger"
)

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Overwrite the working set with the defaults and save it",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(a.cfg.Logging.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			conn, sess, err := a.openSession(cmd.Context(), log)
			if err != nil {
				fatalIfUnavailable(log, err)
				return err
			}
			defer conn.Close()

			if err := sess.Reset(); err != nil {
				return err
			}
			if err := sess.Persist(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "working set reset to defaults")
			return nil
		},
	}
}
