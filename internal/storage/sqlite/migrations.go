package sqlite

import "database/sql"

// schema mirrors the columns of the registration database that the dues run
// reads and writes. Dates are stored as ISO text, timestamps as Unix seconds.
const schema = `
CREATE TABLE IF NOT EXISTS people (
    id INTEGER PRIMARY KEY,
    first_name TEXT,
    last_name TEXT,
    role_wish TEXT,
    status TEXT,
    sepa_name TEXT,
    sepa_iban TEXT,
    sepa_mandate_date TEXT,
    sepa_status TEXT,
    sepa_history TEXT,
    fee_reduction_cents INTEGER NOT NULL DEFAULT 0,
    early_payer INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS accounting_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subject_id INTEGER NOT NULL,
    amount_cents INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    comment TEXT,
    reference TEXT,
    FOREIGN KEY (subject_id) REFERENCES people(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_people_status ON people(status);
CREATE INDEX IF NOT EXISTS idx_accounting_entries_subject_id ON accounting_entries(subject_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounting_entries_reference ON accounting_entries(reference);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
