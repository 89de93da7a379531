package store

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"fmeca-service/models"
)

// Seed is the import document that populates the reference data and the
// default link set.
//
//	components:
//	  - {id: 1, name: Motor-Driven Pump}
//	failure_modes:
//	  - {id: 1, description: Seal Leak}
//	defaults:
//	  - {cf_id: 1, comp_id: 1, fail_id: 1, frequency: 2, severity: 3, detection: 4}
type Seed struct {
	Components   []models.Component        `yaml:"components"`
	FailureModes []models.FailureMode      `yaml:"failure_modes"`
	Defaults     []models.ComponentFailure `yaml:"defaults"`
}

// ImportResult counts the rows written by ImportSeed.
type ImportResult struct {
	Components   int
	FailureModes int
	Defaults     int
}

// ParseSeed decodes a YAML seed document and checks it for obvious defects.
func ParseSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("error decoding seed: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *Seed) validate() error {
	names := make(map[string]bool, len(s.Components))
	comps := make(map[int64]bool, len(s.Components))
	for _, c := range s.Components {
		if c.Name == "" {
			return fmt.Errorf("seed component %d has no name", c.ID)
		}
		if names[c.Name] {
			return fmt.Errorf("seed component name %q is duplicated", c.Name)
		}
		names[c.Name] = true
		comps[c.ID] = true
	}
	modes := make(map[int64]bool, len(s.FailureModes))
	for _, fm := range s.FailureModes {
		modes[fm.ID] = true
	}
	pairs := make(map[[2]int64]bool, len(s.Defaults))
	for _, d := range s.Defaults {
		if !comps[d.CompID] {
			return fmt.Errorf("seed link %d references unknown component %d", d.CFID, d.CompID)
		}
		if !modes[d.FailID] {
			return fmt.Errorf("seed link %d references unknown failure mode %d", d.CFID, d.FailID)
		}
		key := [2]int64{d.CompID, d.FailID}
		if pairs[key] {
			return fmt.Errorf("seed link %d duplicates component %d / failure mode %d", d.CFID, d.CompID, d.FailID)
		}
		pairs[key] = true
		for _, v := range []int{d.Frequency, d.Severity, d.Detection} {
			if v < 1 || v > 10 {
				return fmt.Errorf("seed link %d has a factor outside [1,10]", d.CFID)
			}
		}
	}
	return nil
}

// ImportSeed upserts the seed into components, fail_modes and comp_fails in
// one transaction. The working table is not touched; the next load clones
// the defaults into it when it is empty.
func (s *FMEAStore) ImportSeed(ctx context.Context, seed *Seed) (ImportResult, error) {
	var res ImportResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("error beginning import transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, c := range seed.Components {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`INSERT INTO components (id, name) VALUES (?, ?)
              ON CONFLICT (id) DO UPDATE SET name = excluded.name`), c.ID, c.Name); err != nil {
			return res, fmt.Errorf("error importing component %d: %w", c.ID, err)
		}
		res.Components++
	}
	for _, fm := range seed.FailureModes {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`INSERT INTO fail_modes (id, description) VALUES (?, ?)
              ON CONFLICT (id) DO UPDATE SET description = excluded.description`), fm.ID, fm.Description); err != nil {
			return res, fmt.Errorf("error importing failure mode %d: %w", fm.ID, err)
		}
		res.FailureModes++
	}
	for _, d := range seed.Defaults {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`INSERT INTO `+DefaultTable+`
              (cf_id, comp_id, fail_id, frequency, severity, detection,
               lower_bound, best_estimate, upper_bound, mission_time)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT (cf_id) DO UPDATE SET
                  comp_id = excluded.comp_id, fail_id = excluded.fail_id,
                  frequency = excluded.frequency, severity = excluded.severity,
                  detection = excluded.detection, lower_bound = excluded.lower_bound,
                  best_estimate = excluded.best_estimate, upper_bound = excluded.upper_bound,
                  mission_time = excluded.mission_time`),
			d.CFID, d.CompID, d.FailID, d.Frequency, d.Severity, d.Detection,
			d.LowerBound, d.BestEstimate, d.UpperBound, d.MissionTime); err != nil {
			return res, fmt.Errorf("error importing default link %d: %w", d.CFID, err)
		}
		res.Defaults++
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("error committing import transaction: %w", err)
	}
	return res, nil
}
