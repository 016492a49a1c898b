package models

import "time"

// ShiftTemplate is static reference data: a named recurring time-of-day work
// period (e.g. Day, Night) with no calendar date. Times are "HH:MM" strings;
// an end before the start means the shift crosses midnight.
type ShiftTemplate struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartTime string    `json:"start_time" db:"start_time"`
	EndTime   string    `json:"end_time" db:"end_time"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ShiftInstance is one concrete dated occurrence of a template for a unit.
// Unique per (unit_id, template_id, start_at); immutable once created.
type ShiftInstance struct {
	ID         string    `json:"id" db:"id"`
	TemplateID string    `json:"template_id" db:"template_id"`
	UnitID     string    `json:"unit_id" db:"unit_id"`
	StartAt    time.Time `json:"start_at" db:"start_at"`
	EndAt      time.Time `json:"end_at" db:"end_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ShiftWindow is the transition boundary between one FROM instance and one TO
// instance: the point at which patients move from the outgoing team to the
// incoming team. Unique per (from_instance_id, to_instance_id); shared by all
// patients crossing the same transition.
type ShiftWindow struct {
	ID             string    `json:"id" db:"id"`
	UnitID         string    `json:"unit_id" db:"unit_id"`
	FromInstanceID string    `json:"from_instance_id" db:"from_instance_id"`
	ToInstanceID   string    `json:"to_instance_id" db:"to_instance_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
