package cmd

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmeca-service/db"
	"fmeca-service/store"
)

const cmdSeed = `
components:
  - {id: 1, name: Motor-Driven Pump}
failure_modes:
  - {id: 1, description: Seal Leak}
  - {id: 2, description: Fails to Run}
defaults:
  - {cf_id: 1, comp_id: 1, fail_id: 1, frequency: 2, severity: 3, detection: 4, lower_bound: 4.17, best_estimate: 20.8, upper_bound: 125, mission_time: 24}
  - {cf_id: 2, comp_id: 1, fail_id: 2, frequency: 5, severity: 5, detection: 5, lower_bound: 1, best_estimate: 30, upper_bound: 1000}
`

// setup points the config at a fresh sqlite file and writes the seed.
func setup(t *testing.T) (dir, dbPath, seedPath string) {
	t.Helper()
	dir = t.TempDir()
	dbPath = filepath.Join(dir, "fmeca.db")
	seedPath = filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(cmdSeed), 0o600))
	t.Setenv("FMECA_DATABASE_DSN", dbPath)
	t.Setenv("FMECA_LOGGING_FILE", filepath.Join(dir, "fmeca.log"))
	return dir, dbPath, seedPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportCommand(t *testing.T) {
	_, dbPath, seedPath := setup(t)

	out, err := run(t, "import", seedPath)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 components, 2 failure modes, 2 default links")

	conn, err := db.Open(db.Options{Driver: db.DriverSQLite, DSN: dbPath})
	require.NoError(t, err)
	defer conn.Close()
	defaults, err := store.NewFMEAStore(conn).ListDefaultFailures(context.Background())
	require.NoError(t, err)
	assert.Len(t, defaults, 2)
}

func TestImportCommandErrors(t *testing.T) {
	dir, _, _ := setup(t)

	_, err := run(t, "import")
	assert.Error(t, err)

	_, err = run(t, "import", filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "error opening seed")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("components: [{id: 1, name: ''}]\n"), 0o600))
	_, err = run(t, "import", bad)
	assert.Error(t, err)
}

func TestChartCommand(t *testing.T) {
	dir, _, seedPath := setup(t)
	_, err := run(t, "import", seedPath)
	require.NoError(t, err)

	out := filepath.Join(dir, "pump.png")
	stdout, err := run(t, "chart", "--component", "Motor-Driven Pump", "--kind", "weibull", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, out)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())

	_, err = run(t, "chart", "--component", "Motor-Driven Pump", "--kind", "histogram")
	assert.ErrorContains(t, err, "unknown chart kind")

	_, err = run(t, "chart", "--component", "Turbine")
	assert.ErrorContains(t, err, "no component selected")
}

func TestResetCommand(t *testing.T) {
	_, dbPath, seedPath := setup(t)
	_, err := run(t, "import", seedPath)
	require.NoError(t, err)

	// first session load clones the defaults; then edit the working table
	out, err := run(t, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "working set reset to defaults")

	conn, err := db.Open(db.Options{Driver: db.DriverSQLite, DSN: dbPath})
	require.NoError(t, err)
	st := store.NewFMEAStore(conn)
	working, err := st.ListWorkingFailures(context.Background())
	require.NoError(t, err)
	require.Len(t, working, 2)
	working[0].Frequency = 9
	working[0].Recompute()
	require.NoError(t, st.SaveWorkingFailures(context.Background(), working))
	require.NoError(t, conn.Close())

	_, err = run(t, "reset")
	require.NoError(t, err)

	conn, err = db.Open(db.Options{Driver: db.DriverSQLite, DSN: dbPath})
	require.NoError(t, err)
	defer conn.Close()
	working, err = store.NewFMEAStore(conn).ListWorkingFailures(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, working[0].Frequency)
	assert.Equal(t, 24, working[0].RPN)
}

func TestInvalidConfig(t *testing.T) {
	setup(t)
	t.Setenv("FMECA_SESSION_RISK_THRESHOLD", "0")

	_, err := run(t, "reset")
	assert.ErrorContains(t, err, "session.risk_threshold")

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "reset")
	assert.ErrorContains(t, err, "error reading config")
}
