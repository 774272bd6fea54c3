package clinic

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "clinic.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return db
}

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func booking(doctorID int64, date, at string) BookingRequest {
	return BookingRequest{
		DoctorID:     doctorID,
		PatientName:  "Alice Smith",
		PatientEmail: "alice@example.com",
		Date:         date,
		Time:         at,
		Reason:       "checkup",
	}
}

func TestSeedIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Seed(context.Background()); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	docs, err := db.Doctors(context.Background(), "")
	if err != nil {
		t.Fatalf("Doctors: %v", err)
	}
	if len(docs) != 5 {
		t.Errorf("doctors = %d, want 5", len(docs))
	}
}

func TestDoctorsFilterBySpecialization(t *testing.T) {
	db := openTestDB(t)
	docs, err := db.Doctors(context.Background(), "general")
	if err != nil {
		t.Fatalf("Doctors: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("general doctors = %d, want 2", len(docs))
	}
	for _, d := range docs {
		if d.Specialization != "general" {
			t.Errorf("doctor %s specialization = %s", d.Name, d.Specialization)
		}
	}
}

func TestDoctorByIDNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.DoctorByID(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFreeSlots(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	doc, err := db.DoctorByID(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}

	free, err := db.FreeSlots(ctx, doc, "2025-03-11")
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	// 09:00 to 17:00 in 30 minute steps.
	if len(free) != 16 {
		t.Fatalf("free slots = %d, want 16", len(free))
	}
	if free[0] != "09:00" || free[len(free)-1] != "16:30" {
		t.Errorf("slot range = %s..%s", free[0], free[len(free)-1])
	}

	if _, err := db.Book(ctx, booking(1, "2025-03-11", "10:30"), testNow); err != nil {
		t.Fatalf("Book: %v", err)
	}
	free, err = db.FreeSlots(ctx, doc, "2025-03-11")
	if err != nil {
		t.Fatal(err)
	}
	if len(free) != 15 {
		t.Errorf("free slots after booking = %d, want 15", len(free))
	}
	for _, s := range free {
		if s == "10:30" {
			t.Error("booked slot still listed as free")
		}
	}
}

func TestBook(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	appt, err := db.Book(ctx, booking(1, "2025-03-11", "10:30"), testNow)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appt.ID == 0 || appt.Status != StatusConfirmed {
		t.Errorf("appointment = %+v", appt)
	}
	if appt.DoctorName != "Dr. Sarah Johnson" {
		t.Errorf("doctor name = %s", appt.DoctorName)
	}
}

func TestBookConflicts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Book(ctx, booking(1, "2025-03-11", "10:30"), testNow); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		req     BookingRequest
		wantErr error
	}{
		{"same slot", booking(1, "2025-03-11", "10:30"), ErrSlotTaken},
		{"past date", booking(1, "2025-03-01", "10:30"), ErrPastDate},
		{"before opening", booking(1, "2025-03-11", "08:00"), ErrOutsideHours},
		{"after closing", booking(1, "2025-03-11", "17:00"), ErrOutsideHours},
		{"off grid time", booking(1, "2025-03-11", "10:45"), ErrOutsideHours},
		{"unknown doctor", booking(99, "2025-03-11", "10:30"), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Book(ctx, tt.req, testNow)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// A different doctor can take the same slot.
	if _, err := db.Book(ctx, booking(2, "2025-03-11", "10:30"), testNow); err != nil {
		t.Errorf("other doctor same slot: %v", err)
	}
}

func TestBookTodayAcrossUTCBoundary(t *testing.T) {
	db := openTestDB(t)
	// 20:00 in UTC-5 is already the next calendar day in UTC; the caller's
	// "today" must still be bookable.
	now := time.Date(2025, 3, 10, 20, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))
	if _, err := db.Book(context.Background(), booking(1, "2025-03-10", "10:30"), now); err != nil {
		t.Errorf("booking today: %v", err)
	}
	_, err := db.Book(context.Background(), booking(1, "2025-03-09", "10:30"), now)
	if !errors.Is(err, ErrPastDate) {
		t.Errorf("yesterday: err = %v, want ErrPastDate", err)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	appt, err := db.Book(ctx, booking(1, "2025-03-11", "10:30"), testNow)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Cancel(ctx, appt.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := db.Cancel(ctx, appt.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second cancel err = %v, want ErrNotFound", err)
	}

	// Slot is bookable again.
	if _, err := db.Book(ctx, booking(1, "2025-03-11", "10:30"), testNow); err != nil {
		t.Errorf("rebooking cancelled slot: %v", err)
	}
}

func TestAppointmentsFilter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	db.Book(ctx, booking(1, "2025-03-11", "09:00"), testNow)
	db.Book(ctx, booking(2, "2025-03-11", "09:00"), testNow)
	other := booking(1, "2025-03-12", "09:00")
	other.PatientEmail = "bob@example.com"
	db.Book(ctx, other, testNow)

	appts, err := db.Appointments(ctx, AppointmentFilter{PatientEmail: "alice@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if len(appts) != 2 {
		t.Errorf("alice appointments = %d, want 2", len(appts))
	}

	appts, err = db.Appointments(ctx, AppointmentFilter{DoctorID: 1, Date: "2025-03-12"})
	if err != nil {
		t.Fatal(err)
	}
	if len(appts) != 1 || appts[0].PatientEmail != "bob@example.com" {
		t.Errorf("filtered appointments = %+v", appts)
	}
}

func TestAppointmentStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a1, _ := db.Book(ctx, booking(1, "2025-03-11", "09:00"), testNow)
	db.Book(ctx, booking(1, "2025-03-11", "09:30"), testNow)
	db.Book(ctx, booking(2, "2025-03-12", "09:00"), testNow)
	db.Cancel(ctx, a1.ID)

	st, err := db.AppointmentStats(ctx, 0, "2025-03-11", "2025-03-12")
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 3 {
		t.Errorf("total = %d, want 3", st.Total)
	}
	if st.ByStatus[StatusCancelled] != 1 || st.ByStatus[StatusConfirmed] != 2 {
		t.Errorf("by status = %v", st.ByStatus)
	}
	if st.ByDoctor["Dr. Sarah Johnson"] != 2 {
		t.Errorf("by doctor = %v", st.ByDoctor)
	}

	st, err = db.AppointmentStats(ctx, 2, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 1 {
		t.Errorf("doctor 2 total = %d, want 1", st.Total)
	}
}

func TestPatientStatsFor(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	withSymptoms := booking(1, "2025-03-11", "09:00")
	withSymptoms.Symptoms = "headache"
	db.Book(ctx, withSymptoms, testNow)

	other := booking(1, "2025-03-11", "09:30")
	other.PatientEmail = "bob@example.com"
	other.PatientName = "Bob Jones"
	db.Book(ctx, other, testNow)

	st, err := db.PatientStatsFor(ctx, 1, "2025-03-11", "2025-03-11")
	if err != nil {
		t.Fatal(err)
	}
	if st.Patients != 2 || st.WithSymptoms != 1 || st.Appointments != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestVisitsAndPrescriptions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.AddVisit(ctx, Visit{
		DoctorID:     1,
		PatientName:  "Alice Smith",
		PatientEmail: "alice@example.com",
		VisitDate:    "2025-03-10",
		Symptoms:     "cough",
		Diagnosis:    "cold",
		Notes:        "rest",
	})
	if err != nil {
		t.Fatalf("AddVisit: %v", err)
	}

	if err := db.SetPrescription(ctx, id, "paracetamol 500mg"); err != nil {
		t.Fatalf("SetPrescription: %v", err)
	}
	if err := db.SetPrescription(ctx, 999, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing visit err = %v, want ErrNotFound", err)
	}

	visits, err := db.PatientHistory(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("PatientHistory: %v", err)
	}
	if len(visits) != 1 {
		t.Fatalf("visits = %d, want 1", len(visits))
	}
	if visits[0].Prescription != "paracetamol 500mg" || visits[0].Diagnosis != "cold" {
		t.Errorf("visit = %+v", visits[0])
	}

	if _, err := db.PatientHistory(ctx, ""); err == nil {
		t.Error("empty email accepted")
	}
}

func TestGenerateSlots(t *testing.T) {
	slots, err := generateSlots("09:00", "11:00")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"09:00", "09:30", "10:00", "10:30"}
	if len(slots) != len(want) {
		t.Fatalf("slots = %v", slots)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("slot %d = %s, want %s", i, slots[i], want[i])
		}
	}

	if _, err := generateSlots("bogus", "11:00"); err == nil {
		t.Error("bad start accepted")
	}
}
