package models

import "time"

// Patient master data. Sage only reads patients: creation and maintenance
// belong to the admissions system.
type Patient struct {
	ID        string    `json:"id" db:"id"`
	UnitID    string    `json:"unit_id" db:"unit_id"`
	FullName  string    `json:"full_name" db:"full_name"`
	MRN       string    `json:"mrn" db:"mrn"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// User master data, read-only in sage
type User struct {
	ID        string    `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Email     string    `json:"email" db:"email"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Unit is a hospital ward/unit
type Unit struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
