package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"fmeca-service/db"
	"fmeca-service/models"
)

const (
	// DefaultTable holds the immutable factory-default links.
	DefaultTable = "comp_fails"
	// WorkingTable holds the user's working copy.
	WorkingTable = "local_comp_fails"
)

// FMEAStoreInterface is what the reconciliation layer needs from the store.
type FMEAStoreInterface interface {
	ListComponents(ctx context.Context) ([]*models.Component, error)
	ListFailureModes(ctx context.Context) ([]*models.FailureMode, error)
	ListDefaultFailures(ctx context.Context) ([]models.ComponentFailure, error)
	ListWorkingFailures(ctx context.Context) ([]models.ComponentFailure, error)
	CloneDefaultsToWorking(ctx context.Context) (int64, error)
	SaveWorkingFailures(ctx context.Context, rows []models.ComponentFailure) error
}

// FMEAStore handles database operations for the FMEA relations.
type FMEAStore struct {
	db *db.DB
}

// NewFMEAStore wraps an open store handle.
func NewFMEAStore(d *db.DB) *FMEAStore {
	return &FMEAStore{db: d}
}

// ListComponents retrieves all components ordered by id.
func (s *FMEAStore) ListComponents(ctx context.Context) ([]*models.Component, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM components ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing components: %w", err)
	}
	defer rows.Close()

	var components []*models.Component
	for rows.Next() {
		c := &models.Component{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("error scanning component row: %w", err)
		}
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating component rows: %w", err)
	}
	return components, nil
}

// ListFailureModes retrieves all failure modes ordered by id.
func (s *FMEAStore) ListFailureModes(ctx context.Context) ([]*models.FailureMode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, description FROM fail_modes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing failure modes: %w", err)
	}
	defer rows.Close()

	var modes []*models.FailureMode
	for rows.Next() {
		fm := &models.FailureMode{}
		if err := rows.Scan(&fm.ID, &fm.Description); err != nil {
			return nil, fmt.Errorf("error scanning failure mode row: %w", err)
		}
		modes = append(modes, fm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating failure mode rows: %w", err)
	}
	return modes, nil
}

// ListDefaultFailures retrieves the factory-default links with RPN computed.
func (s *FMEAStore) ListDefaultFailures(ctx context.Context) ([]models.ComponentFailure, error) {
	return s.listFailures(ctx, DefaultTable)
}

// ListWorkingFailures retrieves the working links with RPN computed.
func (s *FMEAStore) ListWorkingFailures(ctx context.Context) ([]models.ComponentFailure, error) {
	return s.listFailures(ctx, WorkingTable)
}

func (s *FMEAStore) listFailures(ctx context.Context, table string) ([]models.ComponentFailure, error) {
	query := `SELECT cf_id, comp_id, fail_id, frequency, severity, detection,
                     lower_bound, best_estimate, upper_bound, mission_time
              FROM ` + table + ` ORDER BY cf_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", table, err)
	}
	defer rows.Close()

	var out []models.ComponentFailure
	for rows.Next() {
		var (
			cf                      models.ComponentFailure
			freq, sev, det          sql.NullInt64
			lower, best, upper, mtm sql.NullFloat64
		)
		if err := rows.Scan(&cf.CFID, &cf.CompID, &cf.FailID, &freq, &sev, &det,
			&lower, &best, &upper, &mtm); err != nil {
			return nil, fmt.Errorf("error scanning %s row: %w", table, err)
		}
		cf.Frequency = factorOrDefault(freq)
		cf.Severity = factorOrDefault(sev)
		cf.Detection = factorOrDefault(det)
		cf.LowerBound = realOrDefault(lower)
		cf.BestEstimate = realOrDefault(best)
		cf.UpperBound = realOrDefault(upper)
		cf.MissionTime = realOrDefault(mtm)
		cf.Recompute()
		out = append(out, cf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", table, err)
	}
	return out, nil
}

// Missing RPN factors backfill to 1, so a row with no data has RPN 1.
// Missing bounds and mission time backfill to 0.
func factorOrDefault(v sql.NullInt64) int {
	if !v.Valid {
		return 1
	}
	return int(v.Int64)
}

func realOrDefault(v sql.NullFloat64) float64 {
	if !v.Valid {
		return 0
	}
	return v.Float64
}

// CloneDefaultsToWorking copies every default link into the working table
// when the working table is empty. It returns the number of rows copied.
func (s *FMEAStore) CloneDefaultsToWorking(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+WorkingTable).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting %s: %w", WorkingTable, err)
	}
	if n > 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO `+WorkingTable+`
              (cf_id, comp_id, fail_id, frequency, severity, detection,
               lower_bound, best_estimate, upper_bound, mission_time)
              SELECT cf_id, comp_id, fail_id, frequency, severity, detection,
                     lower_bound, best_estimate, upper_bound, mission_time
              FROM `+DefaultTable)
	if err != nil {
		return 0, fmt.Errorf("error cloning %s into %s: %w", DefaultTable, WorkingTable, err)
	}
	copied, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected for clone: %w", err)
	}
	return copied, nil
}

// SaveWorkingFailures makes the working table hold exactly rows, keyed by
// cf_id, inside one transaction: working rows missing from rows are deleted
// and every row is upserted. Any failure rolls the whole write back.
func (s *FMEAStore) SaveWorkingFailures(ctx context.Context, rows []models.ComponentFailure) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning save transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := s.deleteStaleWorking(ctx, tx, rows); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, s.db.Rebind(`INSERT INTO `+WorkingTable+`
              (cf_id, comp_id, fail_id, frequency, severity, detection,
               lower_bound, best_estimate, upper_bound, mission_time)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT (cf_id) DO UPDATE SET
                  comp_id = excluded.comp_id, fail_id = excluded.fail_id,
                  frequency = excluded.frequency, severity = excluded.severity,
                  detection = excluded.detection, lower_bound = excluded.lower_bound,
                  best_estimate = excluded.best_estimate, upper_bound = excluded.upper_bound,
                  mission_time = excluded.mission_time`))
	if err != nil {
		return fmt.Errorf("error preparing save statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.CFID, r.CompID, r.FailID,
			r.Frequency, r.Severity, r.Detection,
			r.LowerBound, r.BestEstimate, r.UpperBound, r.MissionTime,
		); err != nil {
			return fmt.Errorf("error saving working row %d: %w", r.CFID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing save transaction: %w", err)
	}
	return nil
}

// deleteStaleWorking removes working rows whose cf_id is not in keep. It
// runs before the upsert so a link re-keyed in the default set does not
// collide with its old (comp_id, fail_id) pair.
func (s *FMEAStore) deleteStaleWorking(ctx context.Context, tx *sqlx.Tx, keep []models.ComponentFailure) error {
	if len(keep) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+WorkingTable); err != nil {
			return fmt.Errorf("error clearing %s: %w", WorkingTable, err)
		}
		return nil
	}

	ids := make([]int64, len(keep))
	for i, r := range keep {
		ids[i] = r.CFID
	}
	query, args, err := sqlx.In(`DELETE FROM `+WorkingTable+` WHERE cf_id NOT IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("error building stale row delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("error deleting stale %s rows: %w", WorkingTable, err)
	}
	return nil
}
