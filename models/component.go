package models

// Component is a part under analysis. Created by data import; immutable at runtime.
type Component struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// FailureMode is one distinct way a component can fail.
type FailureMode struct {
	ID          int64  `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
}

// ComponentFailure links a component to a failure mode and carries the
// risk attributes. The same shape backs both the default and the working set.
type ComponentFailure struct {
	CFID         int64   `json:"cf_id" yaml:"cf_id"`
	CompID       int64   `json:"comp_id" yaml:"comp_id"`
	FailID       int64   `json:"fail_id" yaml:"fail_id"`
	Frequency    int     `json:"frequency" yaml:"frequency"`
	Severity     int     `json:"severity" yaml:"severity"`
	Detection    int     `json:"detection" yaml:"detection"`
	RPN          int     `json:"rpn" yaml:"-"`
	LowerBound   float64 `json:"lower_bound" yaml:"lower_bound"`
	BestEstimate float64 `json:"best_estimate" yaml:"best_estimate"`
	UpperBound   float64 `json:"upper_bound" yaml:"upper_bound"`
	MissionTime  float64 `json:"mission_time" yaml:"mission_time"`
}

// ComputeRPN returns Frequency × Severity × Detection.
func ComputeRPN(frequency, severity, detection int) int {
	return frequency * severity * detection
}

// Recompute refreshes the derived RPN from the current factors.
func (cf *ComponentFailure) Recompute() {
	cf.RPN = ComputeRPN(cf.Frequency, cf.Severity, cf.Detection)
}

// Bounds returns lower bound, best estimate and upper bound in that order.
func (cf ComponentFailure) Bounds() [3]float64 {
	return [3]float64{cf.LowerBound, cf.BestEstimate, cf.UpperBound}
}

// Row is a working-set link joined with its failure-mode description.
// It is what every table view displays.
type Row struct {
	ComponentFailure
	Description string `json:"description"`
}
