package models

import "time"

// SchemaVersion is the settings schema version written by this build. When a
// stored settings row carries an older value it is upgraded in place at
// startup; only the version field changes automatically.
const SchemaVersion = "1.1.0"

// AppSettings is the single process-wide configuration row.
type AppSettings struct {
	DisplayName    string    `db:"display_name" json:"display_name"`
	Slug           string    `db:"slug" json:"slug"`
	IntervalLength int       `db:"interval_length" json:"interval_length"`
	IntervalCount  int       `db:"interval_count" json:"interval_count"`
	Debug          bool      `db:"debug" json:"debug"`
	SchemaVersion  string    `db:"schema_version" json:"schema_version"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultSettings seeds the settings row on first startup.
func DefaultSettings() AppSettings {
	return AppSettings{
		DisplayName:    "Library Instruction Recorder",
		Slug:           "LIR",
		IntervalLength: 15,
		IntervalCount:  16,
		Debug:          false,
		SchemaVersion:  SchemaVersion,
	}
}
