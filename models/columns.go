package models

import "fmt"

// Column identifies one of the nine grid columns.
type Column int

const (
	ColDescription Column = iota
	ColRPN
	ColFrequency
	ColSeverity
	ColDetection
	ColLowerBound
	ColBestEstimate
	ColUpperBound
	ColMissionTime
)

// ColumnKind is the declared value type of a column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInt
	KindReal
)

// ColumnSpec describes how a column is shown and edited.
type ColumnSpec struct {
	Column   Column
	Key      string
	Label    string
	Kind     ColumnKind
	Editable bool
	// Min and Max bound integer columns; reals only enforce Min.
	Min, Max float64
}

// Columns lists the grid columns in display order.
var Columns = []ColumnSpec{
	{ColDescription, "description", "Failure Modes", KindText, false, 0, 0},
	{ColRPN, "rpn", "RPN", KindInt, false, 1, 1000},
	{ColFrequency, "frequency", "Frequency", KindInt, true, 1, 10},
	{ColSeverity, "severity", "Severity", KindInt, true, 1, 10},
	{ColDetection, "detection", "Detectability", KindInt, true, 1, 10},
	{ColLowerBound, "lower_bound", "Lower Bound (LB)", KindReal, true, 0, 0},
	{ColBestEstimate, "best_estimate", "Best Estimate (BE)", KindReal, true, 0, 0},
	{ColUpperBound, "upper_bound", "Upper Bound (UB)", KindReal, true, 0, 0},
	{ColMissionTime, "mission_time", "Mission Time", KindReal, true, 0, 0},
}

// Spec returns the column description.
func (c Column) Spec() ColumnSpec {
	if c < 0 || int(c) >= len(Columns) {
		return ColumnSpec{Column: c, Key: fmt.Sprintf("column(%d)", int(c))}
	}
	return Columns[c]
}

func (c Column) String() string { return c.Spec().Key }

// IsFactor reports whether the column feeds the RPN.
func (c Column) IsFactor() bool {
	return c == ColFrequency || c == ColSeverity || c == ColDetection
}

// ParseColumn resolves a column by key ("frequency") or label ("Frequency").
func ParseColumn(s string) (Column, bool) {
	for _, spec := range Columns {
		if spec.Key == s || spec.Label == s {
			return spec.Column, true
		}
	}
	return 0, false
}

// Cell formats the row's value for column c.
func (r Row) Cell(c Column) string {
	switch c {
	case ColDescription:
		return r.Description
	case ColRPN:
		return fmt.Sprint(r.RPN)
	case ColFrequency:
		return fmt.Sprint(r.Frequency)
	case ColSeverity:
		return fmt.Sprint(r.Severity)
	case ColDetection:
		return fmt.Sprint(r.Detection)
	case ColLowerBound:
		return formatReal(r.LowerBound)
	case ColBestEstimate:
		return formatReal(r.BestEstimate)
	case ColUpperBound:
		return formatReal(r.UpperBound)
	case ColMissionTime:
		return formatReal(r.MissionTime)
	}
	return ""
}

// Cell formats a link's value; the description is not known at this level.
func (cf ComponentFailure) Cell(c Column) string {
	return Row{ComponentFailure: cf}.Cell(c)
}

func formatReal(v float64) string {
	return fmt.Sprintf("%g", v)
}
