package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"fmeca-service/logger"
	"fmeca-service/tui"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Edit failure modes in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			// the screen belongs to the grid, so logs go to a file
			log, err := logger.NewToFile(a.cfg.Logging.Mode, a.cfg.Logging.File)
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

			p := tea.NewProgram(tui.New(cmd.Context(), sess, log), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}
