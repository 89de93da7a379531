package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fmeca-service/config"
	"fmeca-service/db"
	"fmeca-service/logger"
	"fmeca-service/session"
	"fmeca-service/store"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "fmeca",
		Short: "Failure Mode, Effects and Criticality Analysis tool",
		Long: `fmeca edits the failure-mode risk attributes (frequency, severity,
detectability and the derived RPN) of each component, colors them against a
risk threshold, and charts them or fits reliability distributions to their
failure-rate bounds.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./fmeca.yaml)")

	root.AddCommand(
		newServeCmd(a),
		newTUICmd(a),
		newImportCmd(a),
		newChartCmd(a),
		newResetCmd(a),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func (a *app) loadConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}
	cfg, err := config.Load(viper.New(), a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// openStore opens the database. A failure wraps db.ErrUnavailable.
func (a *app) openStore() (*db.DB, *store.FMEAStore, error) {
	conn, err := db.Open(a.cfg.Database.DBOptions())
	if err != nil {
		return nil, nil, err
	}
	return conn, store.NewFMEAStore(conn), nil
}

// openSession opens the store and loads a session over it. The caller
// closes the returned handle.
func (a *app) openSession(ctx context.Context, log *logger.Logger) (*db.DB, *session.Session, error) {
	conn, st, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	sess := session.New(st, log, a.cfg.Session.SessionOptions())
	if err := sess.Load(ctx); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, sess, nil
}

// fatalIfUnavailable stops the process when the store cannot be reached;
// nothing can proceed without it.
func fatalIfUnavailable(log *logger.Logger, err error) {
	if errors.Is(err, session.ErrStoreUnavailable) {
		log.Fatal("store unavailable", "error", err)
	}
}
