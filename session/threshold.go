package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MinRiskThreshold = 1
	MaxRiskThreshold = 1000
)

// RiskLevel is how a row compares against the risk threshold.
type RiskLevel int

const (
	WithinThreshold RiskLevel = iota
	AboveThreshold
)

func (l RiskLevel) String() string {
	if l == AboveThreshold {
		return "above"
	}
	return "within"
}

// MarshalText renders the level as "above" or "within".
func (l RiskLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseThreshold converts user input into a threshold in [1,1000].
func ParseThreshold(raw string) (float64, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, ErrThresholdRequired
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: risk threshold %q is not a number", ErrValidation, raw)
	}
	return checkThreshold(v)
}

func checkThreshold(v float64) (float64, error) {
	if math.IsNaN(v) || v < MinRiskThreshold || v > MaxRiskThreshold {
		return 0, fmt.Errorf("%w: risk threshold must be between %d and %d, inclusive",
			ErrValidation, MinRiskThreshold, MaxRiskThreshold)
	}
	return v, nil
}

// SetThreshold parses and stores a new risk threshold. Invalid input leaves
// the previous threshold in place.
func (s *Session) SetThreshold(raw string) (float64, error) {
	v, err := ParseThreshold(raw)
	if err != nil {
		s.log.Debug("risk threshold rejected", "raw", raw, "error", err)
		return s.Threshold(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = v
	s.updateGauge()
	s.log.Debug("risk threshold set", "threshold", v)
	return v, nil
}

// Threshold returns the current risk threshold.
func (s *Session) Threshold() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threshold
}

// Classify marks an RPN against the current threshold. A value equal to the
// threshold is within it.
func (s *Session) Classify(rpn int) RiskLevel {
	return classify(rpn, s.Threshold())
}

func classify(rpn int, threshold float64) RiskLevel {
	if float64(rpn) > threshold {
		return AboveThreshold
	}
	return WithinThreshold
}
