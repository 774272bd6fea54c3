package clinic

import (
	"context"
	"errors"
	"fmt"
)

// AddVisit records a visit in a patient's history and returns its id.
func (c *DB) AddVisit(ctx context.Context, v Visit) (int64, error) {
	if _, err := c.DoctorByID(ctx, v.DoctorID); err != nil {
		return 0, err
	}
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO visits (doctor_id, patient_name, patient_email, visit_date, symptoms, diagnosis, notes, prescription)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.DoctorID, v.PatientName, v.PatientEmail, v.VisitDate, v.Symptoms, v.Diagnosis, v.Notes, v.Prescription)
	if err != nil {
		return 0, fmt.Errorf("insert visit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("visit id: %w", err)
	}
	return id, nil
}

// SetPrescription attaches a prescription to an existing visit.
func (c *DB) SetPrescription(ctx context.Context, visitID int64, prescription string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE visits SET prescription = ? WHERE id = ?`, prescription, visitID)
	if err != nil {
		return fmt.Errorf("set prescription on visit %d: %w", visitID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set prescription on visit %d: %w", visitID, err)
	}
	if n == 0 {
		return fmt.Errorf("visit %d: %w", visitID, ErrNotFound)
	}
	return nil
}

// PatientHistory returns a patient's visits, most recent first.
func (c *DB) PatientHistory(ctx context.Context, patientEmail string) ([]Visit, error) {
	if patientEmail == "" {
		return nil, errors.New("patient email is required")
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, doctor_id, patient_name, patient_email, visit_date, symptoms, diagnosis, notes, prescription
		 FROM visits WHERE patient_email = ? ORDER BY visit_date DESC, id DESC`, patientEmail)
	if err != nil {
		return nil, fmt.Errorf("query patient history: %w", err)
	}
	defer rows.Close()

	var out []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.DoctorID, &v.PatientName, &v.PatientEmail, &v.VisitDate,
			&v.Symptoms, &v.Diagnosis, &v.Notes, &v.Prescription); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
