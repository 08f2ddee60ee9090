package models

import "time"

// Medicine is a catalogue entry served by the lookup endpoints.
type Medicine struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	GenericName  string    `db:"generic_name" json:"generic_name"`
	Manufacturer string    `db:"manufacturer" json:"manufacturer"`
	Strength     string    `db:"strength" json:"strength"`
	DosageForm   string    `db:"dosage_form" json:"dosage_form"`
	Description  string    `db:"description" json:"description"`
	Prescription bool      `db:"prescription" json:"prescription"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// MedicineFilter captures search criteria.
type MedicineFilter struct {
	Query    string
	Page     int
	PageSize int
}
