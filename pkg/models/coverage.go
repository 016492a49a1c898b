package models

import "time"

// Coverage binds a responsible clinician to a patient for one shift instance.
// For a given (patient, instance) at most one row is primary; the coverage
// repository's promotion logic keeps that invariant across deletions.
type Coverage struct {
	ID              string    `json:"id" db:"id"`
	PatientID       string    `json:"patient_id" db:"patient_id"`
	ShiftInstanceID string    `json:"shift_instance_id" db:"shift_instance_id"`
	UserID          string    `json:"user_id" db:"user_id"`
	IsPrimary       bool      `json:"is_primary" db:"is_primary"`
	AssignedAt      time.Time `json:"assigned_at" db:"assigned_at"`
}

// AssignCoverageRequest is the request for binding a clinician to a patient
type AssignCoverageRequest struct {
	UserID          string `json:"user_id" validate:"required"`
	PatientID       string `json:"patient_id" validate:"required"`
	ShiftInstanceID string `json:"shift_instance_id" validate:"required"`
	MakePrimary     bool   `json:"make_primary"`
}

// UnassignCoverageRequest removes a clinician's coverage of a patient
type UnassignCoverageRequest struct {
	UserID          string `json:"user_id" validate:"required"`
	PatientID       string `json:"patient_id" validate:"required"`
	ShiftInstanceID string `json:"shift_instance_id" validate:"required"`
}
