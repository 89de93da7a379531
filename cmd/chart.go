package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fmeca-service/charts"
	"fmeca-service/logger"
)

func newChartCmd(a *app) *cobra.Command {
	var (
		component string
		kindName  string
		out       string
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render a component's chart to PNG",
		Long:  "Render a component's chart to PNG. Kinds: " + kindList() + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := charts.ParseKind(kindName)
			if err != nil {
				return err
			}
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

			comp, err := sess.ComponentByName(component)
			if err != nil {
				return err
			}
			rows, err := sess.RowsFor(comp.ID)
			if err != nil {
				return err
			}
			chart, err := charts.Build(kind, comp.Name, rows)
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("%s-%s.png", strings.ReplaceAll(strings.ToLower(comp.Name), " ", "-"), kind)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("error creating %s: %w", out, err)
			}
			if err := charts.Render(f, chart, a.cfg.Charts.ChartOptions()); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			log.Info("chart written", "component", comp.Name, "kind", kind.String(), "path", out)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&component, "component", "", "component name")
	cmd.Flags().StringVar(&kindName, "kind", charts.KindBar.String(), "chart kind")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <component>-<kind>.png)")
	_ = cmd.MarkFlagRequired("component")
	return cmd
}

func kindList() string {
	names := make([]string, 0, len(charts.Kinds()))
	for _, k := range charts.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}
