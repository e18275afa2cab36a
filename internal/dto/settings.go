package dto

import "time"

// UpdateSettingsRequest updates the administrator-controlled settings fields.
// The schema version is never client-writable.
type UpdateSettingsRequest struct {
	DisplayName    string `json:"display_name"`
	Slug           string `json:"slug"`
	IntervalLength int    `json:"interval_length" validate:"omitempty,min=1"`
	IntervalCount  int    `json:"interval_count" validate:"omitempty,min=1"`
	Debug          bool   `json:"debug"`
}

// DurationOption is one selectable class length.
type DurationOption struct {
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

// ReminderRunResponse summarises a reminder dispatch run.
type ReminderRunResponse struct {
	Scanned int `json:"scanned"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// ReminderNextRunResponse reports the next scheduled reminder run.
type ReminderNextRunResponse struct {
	NextRun time.Time `json:"next_run"`
}
