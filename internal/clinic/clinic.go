// Package clinic is the relational storage layer for doctors, appointments,
// and patient visits, backed by SQLite.
package clinic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Appointment lifecycle states.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// slotMinutes is the appointment slot length.
const slotMinutes = 30

// Doctor is one practitioner row.
type Doctor struct {
	ID             int64
	Name           string
	Email          string
	Specialization string
	Phone          string
	AvailableFrom  string // HH:MM
	AvailableTo    string // HH:MM
}

// Appointment is one booking row. Date is YYYY-MM-DD, Time is HH:MM.
type Appointment struct {
	ID           int64
	DoctorID     int64
	DoctorName   string
	PatientName  string
	PatientEmail string
	Date         string
	Time         string
	Reason       string
	Symptoms     string
	Status       string
	CreatedAt    time.Time
}

// Visit is one patient-history row.
type Visit struct {
	ID           int64
	DoctorID     int64
	PatientName  string
	PatientEmail string
	VisitDate    string
	Symptoms     string
	Diagnosis    string
	Notes        string
	Prescription string
}

// ErrSlotTaken is returned when booking an already-occupied slot.
var ErrSlotTaken = errors.New("time slot is already booked")

// ErrNotFound is returned for missing doctors or appointments.
var ErrNotFound = errors.New("not found")

// DB wraps the clinic database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and migrates the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c := &DB{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate clinic schema: %w", err)
	}
	return c, nil
}

// Handle exposes the underlying sql.DB so sibling stores can share the file.
func (c *DB) Handle() *sql.DB { return c.db }

// Close closes the database.
func (c *DB) Close() error { return c.db.Close() }

func (c *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS doctors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		specialization TEXT NOT NULL DEFAULT 'general',
		phone TEXT NOT NULL DEFAULT '',
		available_from TEXT NOT NULL DEFAULT '09:00',
		available_to TEXT NOT NULL DEFAULT '17:00'
	);

	CREATE TABLE IF NOT EXISTS appointments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		doctor_id INTEGER NOT NULL REFERENCES doctors(id),
		patient_name TEXT NOT NULL,
		patient_email TEXT NOT NULL,
		date TEXT NOT NULL,
		time TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT 'General checkup',
		symptoms TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'confirmed',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		doctor_id INTEGER NOT NULL REFERENCES doctors(id),
		patient_name TEXT NOT NULL,
		patient_email TEXT NOT NULL,
		visit_date TEXT NOT NULL,
		symptoms TEXT NOT NULL DEFAULT '',
		diagnosis TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		prescription TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_appointments_doctor_date ON appointments(doctor_id, date);
	CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments(patient_email);
	CREATE INDEX IF NOT EXISTS idx_visits_patient ON visits(patient_email);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Seed inserts the default doctor roster when the table is empty.
func (c *DB) Seed(ctx context.Context) error {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&n); err != nil {
		return fmt.Errorf("count doctors: %w", err)
	}
	if n > 0 {
		return nil
	}

	seed := []Doctor{
		{Name: "Dr. Sarah Johnson", Email: "sarah@clinic.com", Specialization: "general"},
		{Name: "Dr. Michael Chen", Email: "michael@clinic.com", Specialization: "cardiology"},
		{Name: "Dr. Emily Williams", Email: "emily@clinic.com", Specialization: "dermatology"},
		{Name: "Dr. James Brown", Email: "james@clinic.com", Specialization: "neurology"},
		{Name: "Dr. Mohit Adoni", Email: "adonimohit@gmail.com", Specialization: "general", Phone: "+919425707415"},
	}
	for _, d := range seed {
		_, err := c.db.ExecContext(ctx,
			`INSERT INTO doctors (name, email, specialization, phone) VALUES (?, ?, ?, ?)`,
			d.Name, d.Email, d.Specialization, d.Phone)
		if err != nil {
			return fmt.Errorf("seed doctor %s: %w", d.Name, err)
		}
	}
	slog.Info("seeded doctor roster", slog.Int("doctors", len(seed)))
	return nil
}

// Doctors returns all practitioners, optionally filtered by specialization.
func (c *DB) Doctors(ctx context.Context, specialization string) ([]Doctor, error) {
	query := `SELECT id, name, email, specialization, phone, available_from, available_to FROM doctors`
	var args []any
	if specialization != "" {
		query += ` WHERE specialization = ?`
		args = append(args, specialization)
	}
	query += ` ORDER BY id`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query doctors: %w", err)
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Specialization, &d.Phone, &d.AvailableFrom, &d.AvailableTo); err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DoctorByID returns one practitioner or ErrNotFound.
func (c *DB) DoctorByID(ctx context.Context, id int64) (*Doctor, error) {
	var d Doctor
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, email, specialization, phone, available_from, available_to FROM doctors WHERE id = ?`,
		id).Scan(&d.ID, &d.Name, &d.Email, &d.Specialization, &d.Phone, &d.AvailableFrom, &d.AvailableTo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("doctor %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query doctor %d: %w", id, err)
	}
	return &d, nil
}

// BookedSlots returns occupied HH:MM slots for a doctor on a date, cancelled
// appointments excluded.
func (c *DB) BookedSlots(ctx context.Context, doctorID int64, date string) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT time FROM appointments WHERE doctor_id = ? AND date = ? AND status != ?`,
		doctorID, date, StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("query booked slots: %w", err)
	}
	defer rows.Close()

	booked := make(map[string]bool)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		booked[t] = true
	}
	return booked, rows.Err()
}

// FreeSlots generates the doctor's open HH:MM slots for a date.
func (c *DB) FreeSlots(ctx context.Context, d *Doctor, date string) ([]string, error) {
	booked, err := c.BookedSlots(ctx, d.ID, date)
	if err != nil {
		return nil, err
	}
	all, err := generateSlots(d.AvailableFrom, d.AvailableTo)
	if err != nil {
		return nil, err
	}
	var free []string
	for _, s := range all {
		if !booked[s] {
			free = append(free, s)
		}
	}
	return free, nil
}

// generateSlots produces fixed-length slots in [from, to).
func generateSlots(from, to string) ([]string, error) {
	start, err := time.Parse("15:04", from)
	if err != nil {
		return nil, fmt.Errorf("parse slot start %q: %w", from, err)
	}
	end, err := time.Parse("15:04", to)
	if err != nil {
		return nil, fmt.Errorf("parse slot end %q: %w", to, err)
	}
	var slots []string
	for cur := start; cur.Before(end); cur = cur.Add(slotMinutes * time.Minute) {
		slots = append(slots, cur.Format("15:04"))
	}
	return slots, nil
}
