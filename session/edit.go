package session

import (
	"math"
	"strconv"
	"strings"

	"fmeca-service/metrics"
	"fmeca-service/models"
)

// Rejection reasons, worded for display next to the reverted cell.
const (
	ReasonNoRow       = "No failure mode in this row."
	ReasonReadOnly    = "Cannot edit these fields."
	ReasonBadType     = "Invalid input for cell type."
	ReasonFactorRange = "Input must be an integer from 1 to 10, inclusive."
	ReasonNegative    = "Input must be a non-negative number."
)

// ApplyEdit validates raw for column and, on success, writes it into the
// working row keyed by cf_id. Editing a factor recomputes the row's RPN in
// the same step. On failure nothing is mutated and the returned *EditError
// carries the prior cell value for the caller to restore.
func (s *Session) ApplyEdit(key int64, column models.Column, raw string) (models.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return models.Row{}, ErrNotLoaded
	}

	idx, ok := s.workingIdx[key]
	if !ok {
		return models.Row{}, s.reject(key, column, raw, "", ReasonNoRow, ErrValidation)
	}
	current := s.working[idx]
	prior := current.Cell(column)

	spec := column.Spec()
	if !spec.Editable {
		return models.Row{}, s.reject(key, column, raw, prior, ReasonReadOnly, ErrReadOnlyColumn)
	}

	updated := current
	text := strings.TrimSpace(raw)
	switch spec.Kind {
	case models.KindInt:
		v, err := strconv.Atoi(text)
		if err != nil {
			return models.Row{}, s.reject(key, column, raw, prior, ReasonBadType, ErrValidation)
		}
		if float64(v) < spec.Min || float64(v) > spec.Max {
			return models.Row{}, s.reject(key, column, raw, prior, ReasonFactorRange, ErrValidation)
		}
		setInt(&updated, column, v)
	case models.KindReal:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return models.Row{}, s.reject(key, column, raw, prior, ReasonBadType, ErrValidation)
		}
		if v < spec.Min {
			return models.Row{}, s.reject(key, column, raw, prior, ReasonNegative, ErrValidation)
		}
		setReal(&updated, column, v)
	default:
		return models.Row{}, s.reject(key, column, raw, prior, ReasonReadOnly, ErrReadOnlyColumn)
	}

	if column.IsFactor() {
		updated.Recompute()
	}
	s.working[idx] = updated
	s.dirty = true
	s.updateGauge()
	metrics.EditsTotal.WithLabelValues(column.String(), "applied").Inc()
	s.log.Debug("edit applied", "cf_id", key, "column", column.String(), "value", updated.Cell(column), "rpn", updated.RPN)

	return models.Row{ComponentFailure: updated, Description: s.failureModes[updated.FailID]}, nil
}

func (s *Session) reject(key int64, column models.Column, raw, prior, reason string, err error) *EditError {
	metrics.EditsTotal.WithLabelValues(column.String(), "rejected").Inc()
	s.log.Debug("edit rejected", "cf_id", key, "column", column.String(), "raw", raw, "reason", reason)
	return &EditError{Key: key, Column: column, Raw: raw, Prior: prior, Reason: reason, Err: err}
}

func setInt(cf *models.ComponentFailure, column models.Column, v int) {
	switch column {
	case models.ColFrequency:
		cf.Frequency = v
	case models.ColSeverity:
		cf.Severity = v
	case models.ColDetection:
		cf.Detection = v
	}
}

func setReal(cf *models.ComponentFailure, column models.Column, v float64) {
	switch column {
	case models.ColLowerBound:
		cf.LowerBound = v
	case models.ColBestEstimate:
		cf.BestEstimate = v
	case models.ColUpperBound:
		cf.UpperBound = v
	case models.ColMissionTime:
		cf.MissionTime = v
	}
}
