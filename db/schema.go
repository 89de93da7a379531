package db

// Schema holds the four FMEA relations. comp_fails is the factory default
// set; local_comp_fails is the working copy edited by the user. Both
// dialects accept this DDL.
const Schema = `
CREATE TABLE IF NOT EXISTS components (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS fail_modes (
    id INTEGER PRIMARY KEY,
    description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS comp_fails (
    cf_id INTEGER PRIMARY KEY,
    comp_id INTEGER NOT NULL REFERENCES components(id),
    fail_id INTEGER NOT NULL REFERENCES fail_modes(id),
    frequency INTEGER,
    severity INTEGER,
    detection INTEGER,
    lower_bound DOUBLE PRECISION,
    best_estimate DOUBLE PRECISION,
    upper_bound DOUBLE PRECISION,
    mission_time DOUBLE PRECISION,
    UNIQUE (comp_id, fail_id)
);

CREATE TABLE IF NOT EXISTS local_comp_fails (
    cf_id INTEGER PRIMARY KEY,
    comp_id INTEGER NOT NULL REFERENCES components(id),
    fail_id INTEGER NOT NULL REFERENCES fail_modes(id),
    frequency INTEGER,
    severity INTEGER,
    detection INTEGER,
    lower_bound DOUBLE PRECISION,
    best_estimate DOUBLE PRECISION,
    upper_bound DOUBLE PRECISION,
    mission_time DOUBLE PRECISION,
    UNIQUE (comp_id, fail_id)
);

CREATE INDEX IF NOT EXISTS idx_comp_fails_comp ON comp_fails(comp_id);
CREATE INDEX IF NOT EXISTS idx_local_comp_fails_comp ON local_comp_fails(comp_id);
`
