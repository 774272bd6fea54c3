package clinic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrOutsideHours is returned when a requested time falls outside the
// doctor's working window.
var ErrOutsideHours = errors.New("time is outside working hours")

// ErrPastDate is returned when booking a date before today.
var ErrPastDate = errors.New("date is in the past")

// BookingRequest carries the fields needed to create an appointment.
type BookingRequest struct {
	DoctorID     int64
	PatientName  string
	PatientEmail string
	Date         string // YYYY-MM-DD
	Time         string // HH:MM
	Reason       string
	Symptoms     string
}

// Book validates the slot and inserts a confirmed appointment.
func (c *DB) Book(ctx context.Context, req BookingRequest, now time.Time) (*Appointment, error) {
	d, err := c.DoctorByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, fmt.Errorf("parse date %q: %w", req.Date, err)
	}
	// Lexicographic compare on the date strings keeps "today" valid in the
	// caller's zone regardless of UTC day boundaries.
	if req.Date < now.Format("2006-01-02") {
		return nil, ErrPastDate
	}

	slots, err := generateSlots(d.AvailableFrom, d.AvailableTo)
	if err != nil {
		return nil, err
	}
	valid := false
	for _, s := range slots {
		if s == req.Time {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrOutsideHours
	}

	booked, err := c.BookedSlots(ctx, d.ID, req.Date)
	if err != nil {
		return nil, err
	}
	if booked[req.Time] {
		return nil, ErrSlotTaken
	}

	if req.Reason == "" {
		req.Reason = "General checkup"
	}
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO appointments (doctor_id, patient_name, patient_email, date, time, reason, symptoms, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, req.PatientName, req.PatientEmail, req.Date, req.Time, req.Reason, req.Symptoms, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("appointment id: %w", err)
	}
	return &Appointment{
		ID:           id,
		DoctorID:     d.ID,
		DoctorName:   d.Name,
		PatientName:  req.PatientName,
		PatientEmail: req.PatientEmail,
		Date:         req.Date,
		Time:         req.Time,
		Reason:       req.Reason,
		Symptoms:     req.Symptoms,
		Status:       StatusConfirmed,
	}, nil
}

// Cancel marks a confirmed appointment cancelled. ErrNotFound when no
// confirmed appointment matches.
func (c *DB) Cancel(ctx context.Context, appointmentID int64) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE appointments SET status = ? WHERE id = ? AND status = ?`,
		StatusCancelled, appointmentID, StatusConfirmed)
	if err != nil {
		return fmt.Errorf("cancel appointment %d: %w", appointmentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel appointment %d: %w", appointmentID, err)
	}
	if n == 0 {
		return fmt.Errorf("appointment %d: %w", appointmentID, ErrNotFound)
	}
	return nil
}

// AppointmentFilter narrows Appointments results. Zero values mean no filter.
type AppointmentFilter struct {
	DoctorID     int64
	PatientEmail string
	Date         string
	Status       string
}

// Appointments lists bookings matching the filter, newest date first.
func (c *DB) Appointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	query := `SELECT a.id, a.doctor_id, d.name, a.patient_name, a.patient_email,
	                 a.date, a.time, a.reason, a.symptoms, a.status, a.created_at
	          FROM appointments a JOIN doctors d ON d.id = a.doctor_id WHERE 1=1`
	var args []any
	if f.DoctorID != 0 {
		query += ` AND a.doctor_id = ?`
		args = append(args, f.DoctorID)
	}
	if f.PatientEmail != "" {
		query += ` AND a.patient_email = ?`
		args = append(args, f.PatientEmail)
	}
	if f.Date != "" {
		query += ` AND a.date = ?`
		args = append(args, f.Date)
	}
	if f.Status != "" {
		query += ` AND a.status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY a.date DESC, a.time`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		var created sql.NullTime
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.DoctorName, &a.PatientName, &a.PatientEmail,
			&a.Date, &a.Time, &a.Reason, &a.Symptoms, &a.Status, &created); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		a.CreatedAt = created.Time
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats aggregates bookings over a window.
type Stats struct {
	Total    int
	ByStatus map[string]int
	ByDoctor map[string]int
}

// AppointmentStats counts bookings in [from, to], optionally for one doctor.
// Empty bounds mean unbounded.
func (c *DB) AppointmentStats(ctx context.Context, doctorID int64, from, to string) (*Stats, error) {
	query := `SELECT d.name, a.status, COUNT(*)
	          FROM appointments a JOIN doctors d ON d.id = a.doctor_id WHERE 1=1`
	var args []any
	if doctorID != 0 {
		query += ` AND a.doctor_id = ?`
		args = append(args, doctorID)
	}
	if from != "" {
		query += ` AND a.date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND a.date <= ?`
		args = append(args, to)
	}
	query += ` GROUP BY d.name, a.status`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointment stats: %w", err)
	}
	defer rows.Close()

	st := &Stats{ByStatus: make(map[string]int), ByDoctor: make(map[string]int)}
	for rows.Next() {
		var doctor, status string
		var n int
		if err := rows.Scan(&doctor, &status, &n); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		st.Total += n
		st.ByStatus[status] += n
		st.ByDoctor[doctor] += n
	}
	return st, rows.Err()
}

// PatientStats counts distinct patients seen in [from, to], optionally for
// one doctor, plus how many reported symptoms.
type PatientStats struct {
	Patients     int
	WithSymptoms int
	Appointments int
}

// PatientStatsFor aggregates patient counts over booked appointments.
func (c *DB) PatientStatsFor(ctx context.Context, doctorID int64, from, to string) (*PatientStats, error) {
	query := `SELECT COUNT(DISTINCT patient_email),
	                 COUNT(DISTINCT CASE WHEN symptoms != '' THEN patient_email END),
	                 COUNT(*)
	          FROM appointments WHERE status != ?`
	args := []any{StatusCancelled}
	if doctorID != 0 {
		query += ` AND doctor_id = ?`
		args = append(args, doctorID)
	}
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}

	var st PatientStats
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&st.Patients, &st.WithSymptoms, &st.Appointments)
	if err != nil {
		return nil, fmt.Errorf("query patient stats: %w", err)
	}
	return &st, nil
}
