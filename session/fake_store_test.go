package session

import (
	"context"
	"errors"

	"fmeca-service/models"
)

// fakeStore is an in-memory FMEAStoreInterface.
type fakeStore struct {
	components []*models.Component
	modes      []*models.FailureMode
	defaults   []models.ComponentFailure
	working    []models.ComponentFailure

	listErr error
	saveErr error
	saves   int
}

func (f *fakeStore) ListComponents(ctx context.Context) ([]*models.Component, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Component, len(f.components))
	for i, c := range f.components {
		cc := *c
		out[i] = &cc
	}
	return out, nil
}

func (f *fakeStore) ListFailureModes(ctx context.Context) ([]*models.FailureMode, error) {
	out := make([]*models.FailureMode, len(f.modes))
	for i, m := range f.modes {
		mm := *m
		out[i] = &mm
	}
	return out, nil
}

func (f *fakeStore) ListDefaultFailures(ctx context.Context) ([]models.ComponentFailure, error) {
	return append([]models.ComponentFailure(nil), f.defaults...), nil
}

func (f *fakeStore) ListWorkingFailures(ctx context.Context) ([]models.ComponentFailure, error) {
	return append([]models.ComponentFailure(nil), f.working...), nil
}

func (f *fakeStore) CloneDefaultsToWorking(ctx context.Context) (int64, error) {
	if len(f.working) > 0 {
		return 0, nil
	}
	f.working = append([]models.ComponentFailure(nil), f.defaults...)
	return int64(len(f.working)), nil
}

func (f *fakeStore) SaveWorkingFailures(ctx context.Context, rows []models.ComponentFailure) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.working = append([]models.ComponentFailure(nil), rows...)
	return nil
}

var errDiskFull = errors.New("disk full")

// pumpStore holds the Motor-Driven Pump scenario plus a second component
// with enough rows to page.
func pumpStore() *fakeStore {
	f := &fakeStore{
		components: []*models.Component{
			{ID: 1, Name: "Motor-Driven Pump"},
			{ID: 2, Name: "Motor-Operated Valves"},
		},
		modes: []*models.FailureMode{
			{ID: 1, Description: "Seal Leak"},
		},
		defaults: []models.ComponentFailure{
			{CFID: 1, CompID: 1, FailID: 1, Frequency: 1, Severity: 1, Detection: 1},
		},
		working: []models.ComponentFailure{
			{CFID: 1, CompID: 1, FailID: 1, Frequency: 2, Severity: 3, Detection: 4,
				LowerBound: 4.17, BestEstimate: 20.8, UpperBound: 125, MissionTime: 24},
		},
	}
	for i := int64(2); i <= 24; i++ {
		f.modes = append(f.modes, &models.FailureMode{ID: i, Description: "Mode " + string(rune('A'+i-2))})
		cf := models.ComponentFailure{CFID: 100 + i, CompID: 2, FailID: i, Frequency: 2, Severity: 2, Detection: 2}
		f.defaults = append(f.defaults, cf)
		f.working = append(f.working, cf)
	}
	return f
}
